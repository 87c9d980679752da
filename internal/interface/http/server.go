// Package http exposes the Career Hub REST API: job posting with matching,
// ranked candidate lists, application status management and health checks.
package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/internal/application/query"
	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/notification"
	"github.com/careerhub/careerhub/internal/interface/http/handlers"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// AppName is reported in the Server header and the root endpoint.
	AppName string

	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// BodyLimit is the maximum request body size in bytes.
	BodyLimit int

	// MatchRunsPerMinute limits POST /jobs and POST /jobs/:id/match per client IP
	// (0 = disabled).
	MatchRunsPerMinute int

	// DefaultMatchLimit applies to GET /jobs/:id/matches without ?limit (0 = all).
	DefaultMatchLimit int

	// Production hides stack traces and internal error details.
	Production bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		AppName:            "careerhub",
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       60 * time.Second,
		IdleTimeout:        60 * time.Second,
		BodyLimit:          1 << 20,
		MatchRunsPerMinute: 30,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the handlers call.
type Dependencies struct {
	// Commands
	MatchStudentsToJob *command.MatchStudentsToJobHandler
	ManageApplication  *command.ManageApplicationHandler

	// Queries
	GetJobMatches *query.GetJobMatchesHandler

	// Stores read or written directly by thin endpoints.
	Jobs          job.Repository
	Notifications notification.Repository

	HealthChecker handlers.HealthChecker

	Logger *logger.Logger

	// NewID generates job IDs when the client does not send one.
	NewID func() string
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the fiber application plus its lifecycle state.
type Server struct {
	config Config
	deps   Dependencies
	app    *fiber.App
	logger *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates the fiber app and registers all routes.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger.With(logger.Component("http")),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      config.AppName,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		BodyLimit:    config.BodyLimit,
		ErrorHandler: s.errorHandler,
	})

	s.app.Use(recover.New(recover.Config{EnableStackTrace: !config.Production}))
	s.app.Use(requestid.New())
	s.app.Use(handlers.RequestLogger(s.logger))

	s.setupRoutes()
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	s.app.Get("/", s.handleRoot)
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/live", s.handleLive)

	api := s.app.Group("/api/v1")

	matchLimit := handlers.MatchRateLimiter(s.config.MatchRunsPerMinute, time.Minute)

	// Jobs and matching
	api.Post("/jobs", matchLimit, s.handleCreateJob)
	api.Get("/jobs/:id", s.handleGetJob)
	api.Post("/jobs/:id/match", matchLimit, s.handleMatchJob)
	api.Get("/jobs/:id/matches", s.handleGetJobMatches)

	// Admissions
	api.Patch("/applications/:id/status", handlers.RequireInstitution(), s.handleUpdateApplicationStatus)

	// Notifications
	api.Get("/students/:id/notifications", s.handleListNotifications)
	api.Post("/notifications/:id/read", s.handleMarkNotificationRead)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// App returns the fiber application, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens and blocks until the server stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("http server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("http server starting", logger.String("address", s.config.Address()))

	err := s.app.Listen(s.config.Address())

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}

// StartAsync starts the server in a goroutine and reports its exit error.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// IsRunning reports whether Start is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
