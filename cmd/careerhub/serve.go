package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpapi "github.com/careerhub/careerhub/internal/interface/http"
	"github.com/careerhub/careerhub/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withContainer(ctx, serve)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, c *Container) error {
	cfg := c.Config

	httpCfg := httpapi.DefaultConfig()
	httpCfg.AppName = cfg.App.Name
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.BodyLimit = cfg.HTTP.BodyLimit
	httpCfg.MatchRunsPerMinute = cfg.HTTP.MatchRunsPerMinute
	httpCfg.DefaultMatchLimit = cfg.Matching.DefaultTopN
	httpCfg.Production = cfg.IsProduction()

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		MatchStudentsToJob: c.MatchStudentsToJob,
		ManageApplication:  c.ManageApplication,
		GetJobMatches:      c.GetJobMatches,
		Jobs:               c.Jobs,
		Notifications:      c.Notifications,
		HealthChecker:      c.Health,
		Logger:             c.Log,
	})

	c.Log.Info("starting careerhub", logger.String("version", version), logger.String("address", httpCfg.Address()))
	errCh := server.StartAsync()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.Log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := c.shutdownContext()
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Error("graceful shutdown failed", logger.Err(err))
		return err
	}
	c.Log.Info("careerhub stopped")
	return nil
}
