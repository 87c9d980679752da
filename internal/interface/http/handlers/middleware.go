package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// RequestLogger logs one line per request and puts a request-scoped logger
// into the user context so commands log with the same request_id.
//
// Errors are resolved through the app's ErrorHandler here so the logged
// status is the one the client receives.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID, _ := c.Locals("requestid").(string)
		reqLog := log.WithRequestID(reqID)
		c.SetUserContext(logger.WithContext(c.UserContext(), reqLog))

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []logger.Field{
			logger.String("method", c.Method()),
			logger.String("path", c.Path()),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.IP()),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			reqLog.Error("request completed", fields...)
		case status >= fiber.StatusBadRequest:
			reqLog.Warn("request completed", fields...)
		default:
			reqLog.Info("request completed", fields...)
		}
		return nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INSTITUTION IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

const (
	// InstitutionHeader carries the calling institution's ID.
	InstitutionHeader = "X-Institution-ID"

	institutionLocalsKey = "institution_id"
)

// RequireInstitution rejects requests without an institution identity.
// Authentication itself happens upstream (gateway); this only extracts the
// identity the gateway forwarded.
func RequireInstitution() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(InstitutionHeader))
		if id == "" {
			return fiber.NewError(fiber.StatusUnauthorized, InstitutionHeader+" header is required")
		}
		c.Locals(institutionLocalsKey, id)
		return c.Next()
	}
}

// InstitutionID returns the identity stored by RequireInstitution.
func InstitutionID(c *fiber.Ctx) string {
	id, _ := c.Locals(institutionLocalsKey).(string)
	return id
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITING
// ══════════════════════════════════════════════════════════════════════════════

// MatchRateLimiter limits matching runs per client IP with a sliding window.
// max <= 0 disables the limit.
func MatchRateLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many matching runs, try again later")
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
