package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

func writeJSON(c *fiber.Ctx, status int, data interface{}) error {
	return writeJSONWithMeta(c, status, data, &ResponseMeta{})
}

func writeJSONWithMeta(c *fiber.Ctx, status int, data interface{}, meta *ResponseMeta) error {
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"
	return c.Status(status).JSON(JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: requestID(c),
	})
}

func writeJSONError(c *fiber.Ctx, status int, code, message, details string) error {
	return c.Status(status).JSON(JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		RequestID: requestID(c),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// errorStatus maps an error to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, "http_error"
	case shared.IsNotFound(err):
		return fiber.StatusNotFound, "not_found"
	case shared.IsAuthorization(err):
		return fiber.StatusForbidden, "forbidden"
	case shared.IsConflict(err), shared.IsAlreadyExists(err):
		return fiber.StatusConflict, "conflict"
	case shared.IsCapacity(err):
		return fiber.StatusConflict, "no_capacity"
	case errors.Is(err, shared.ErrSeatRangeViolation):
		return fiber.StatusConflict, "seat_range_violation"
	case shared.IsTransient(err):
		return fiber.StatusServiceUnavailable, "store_unavailable"
	case shared.IsValidation(err):
		return fiber.StatusBadRequest, "invalid_request"
	default:
		return fiber.StatusInternalServerError, "internal_server_error"
	}
}

// errorHandler is the fiber ErrorHandler: every handler returns plain errors
// and this turns them into the JSON envelope.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}
	details := ""
	if !s.config.Production {
		details = err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			logger.String("method", c.Method()),
			logger.String("path", c.Path()),
			logger.String("request_id", requestID(c)),
			logger.Err(err),
		)
		if status == fiber.StatusInternalServerError {
			message = "An unexpected error occurred"
		}
	}

	return writeJSONError(c, status, code, message, details)
}
