package main

import (
	"context"
	"fmt"
	"time"

	"github.com/careerhub/careerhub/config"
	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/internal/application/eventhandler"
	"github.com/careerhub/careerhub/internal/application/query"
	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/matching"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
	"github.com/careerhub/careerhub/internal/infrastructure/messaging"
	"github.com/careerhub/careerhub/internal/infrastructure/persistence/postgres"
	"github.com/careerhub/careerhub/internal/infrastructure/persistence/redis"
	"github.com/careerhub/careerhub/internal/interface/http/handlers"
	"github.com/careerhub/careerhub/pkg/circuitbreaker"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTAINER
// Every store client is built here and handed to the core explicitly.
// ══════════════════════════════════════════════════════════════════════════════

// Container holds the wired application.
type Container struct {
	Config *config.Config
	Log    *logger.Logger

	DB    *postgres.Connection
	Cache *redis.Cache // nil when Redis is disabled or unreachable

	Students      *postgres.StudentRepository
	Jobs          *postgres.JobRepository
	Notifications *postgres.NotificationRepository
	Admissions    *postgres.AdmissionStore
	MatchCache    job.MatchCache

	Bus shared.EventBus

	MatchStudentsToJob *command.MatchStudentsToJobHandler
	ManageApplication  *command.ManageApplicationHandler
	GetJobMatches      *query.GetJobMatchesHandler

	Health *handlers.CompositeHealthChecker

	closers []func()
}

// NewContainer connects to the stores and wires handlers.
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. POSTGRES
	// ─────────────────────────────────────────────────────────────────────────
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout
	pgCfg.TxMaxAttempts = cfg.Database.TxMaxAttempts

	db, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(db).Migrate(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("database schema is up to date", logger.Int("applied", applied))
	}

	c.Students = postgres.NewStudentRepository(db)
	c.Jobs = postgres.NewJobRepository(db)
	c.Notifications = postgres.NewNotificationRepository(db)
	c.Admissions = postgres.NewAdmissionStore(db)

	c.Health = handlers.NewCompositeHealthChecker(cfg.App.Version)
	c.Health.AddCheck("postgres", handlers.NewPingCheck(db))

	// ─────────────────────────────────────────────────────────────────────────
	// 2. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Redis.Disabled {
		rc := redis.DefaultConfig()
		rc.Host = cfg.Redis.Host
		rc.Port = cfg.Redis.Port
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.PoolSize = cfg.Redis.PoolSize
		rc.MinIdleConns = cfg.Redis.MinIdleConns
		rc.DialTimeout = cfg.Redis.DialTimeout
		rc.ReadTimeout = cfg.Redis.ReadTimeout
		rc.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err := redis.NewCache(rc)
		if err != nil {
			log.Warn("redis unavailable, match cache and event broadcast disabled", logger.Err(err))
		} else {
			c.Cache = cache
			c.closers = append(c.closers, func() { _ = cache.Close() })
			c.Health.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
			log.Info("redis connection established", logger.String("addr", rc.Addr()))
		}
	}

	if c.Cache != nil && cfg.Features.IsEnabled(config.FeatureMatchCache, nil) {
		breaker := circuitbreaker.CacheBreaker("match-cache", redis.IsCacheFailure, func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
		c.MatchCache = redis.NewMatchCache(c.Cache, cfg.Matching.CacheTTL).WithBreaker(breaker)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	if err := c.buildBus(); err != nil {
		c.Close()
		return nil, err
	}
	if err := eventhandler.NewAuditLog(log).Register(c.Bus); err != nil {
		c.Close()
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	scorer, err := matching.NewScorer(matching.MatchWeights{
		Academic:     cfg.Matching.AcademicWeight,
		Certificates: cfg.Matching.CertificateWeight,
		Experience:   cfg.Matching.ExperienceWeight,
		Relevance:    cfg.Matching.RelevanceWeight,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("matching weights: %w", err)
	}

	features := cfg.Features
	c.MatchStudentsToJob = command.NewMatchStudentsToJobHandler(command.MatchStudentsToJobDeps{
		Jobs:          c.Jobs,
		Candidates:    student.FullScan(c.Students),
		Notifications: c.Notifications,
		Evaluator:     matching.NewEvaluator(),
		Scorer:        scorer,
		Publisher:     c.Bus,
		Logger:        log,
		Cache:         c.MatchCache,
		Gate: func(studentID string) bool {
			return features.IsEnabled(config.FeatureMatchNotifications, &config.FeatureContext{UserID: studentID})
		},
	})
	c.ManageApplication = command.NewManageApplicationHandler(postgres.NewAdmissionUnitOfWork(db), c.Bus, log)
	c.GetJobMatches = query.NewGetJobMatchesHandler(c.Jobs, c.MatchCache, log)

	return c, nil
}

func (c *Container) buildBus() error {
	local := messaging.DefaultInMemoryEventBusConfig()

	if c.Cache == nil || !c.Config.Features.IsEnabled(config.FeatureEventBroadcast, nil) {
		bus := messaging.NewInMemoryEventBus(local)
		c.Bus = bus
		c.closers = append(c.closers, func() { _ = bus.Close() })
		c.reportBusStats(bus)
		return nil
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         redis.NewPubSub(c.Cache),
		ChannelName:    c.Config.Redis.EventsChannel,
		LocalBusConfig: local,
	})
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	c.Bus = bus
	c.closers = append(c.closers, func() { _ = bus.Close() })
	c.reportBusStats(bus)
	c.Log.Info("event broadcast enabled", logger.String("channel", c.Config.Redis.EventsChannel))
	return nil
}

type metricsSource interface {
	Metrics() *messaging.EventBusMetrics
}

// reportBusStats puts the bus counters on /health.
func (c *Container) reportBusStats(bus metricsSource) {
	c.Health.AddStats("event_bus", func() interface{} {
		return bus.Metrics().Snapshot()
	})
}

// Close releases resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// shutdownContext bounds graceful shutdown.
func (c *Container) shutdownContext() (context.Context, context.CancelFunc) {
	timeout := c.Config.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
