package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/careerhub/careerhub/internal/infrastructure/persistence/postgres"
	"github.com/careerhub/careerhub/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or list schema migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}
		return migrate(cmd.Context(), action)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// migrate only needs Postgres, so it skips the full container.
func migrate(ctx context.Context, action string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout

	db, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	m := postgres.NewMigrator(db)

	switch action {
	case "up":
		applied, err := m.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Int("count", applied))

	case "down":
		rolledBack, err := m.Rollback(ctx)
		if err != nil {
			return err
		}
		if rolledBack == 0 {
			log.Info("nothing to roll back")
		} else {
			log.Info("migration rolled back", logger.Int("version", rolledBack))
		}

	case "status":
		migrations, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
		for _, mg := range migrations {
			applied := "pending"
			if mg.IsApplied {
				applied = mg.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%03d\t%s\t%s\n", mg.Version, mg.Name, applied)
		}
		return w.Flush()
	}

	return nil
}
