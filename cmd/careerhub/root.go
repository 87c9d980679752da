package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careerhub/careerhub/config"
	"github.com/careerhub/careerhub/pkg/logger"
)

const app = "careerhub"

var (
	// Used for flags.
	debug bool

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "careerhub matches students to jobs and allocates course seats",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output (overrides LOG_LEVEL)")
}

// bootstrap loads configuration and builds the logger every command uses.
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, setupLogger(cfg), nil
}

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if debug || cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	if cfg.Observability.LogFormat == string(logger.FormatConsole) || cfg.IsDevelopment() {
		opts.Format = logger.FormatConsole
	}

	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

// withContainer runs fn against a fully wired container and closes it after.
func withContainer(ctx context.Context, fn func(ctx context.Context, c *Container) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", logger.Err(err))
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}
