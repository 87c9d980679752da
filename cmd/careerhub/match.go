package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/pkg/logger"
)

var matchJobCmd = &cobra.Command{
	Use:   "match-job <job-id>",
	Short: "Re-run matching for a stored job and print the ranked list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *Container) error {
			return matchJob(ctx, c, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(matchJobCmd)
}

func matchJob(ctx context.Context, c *Container, jobID string) error {
	result, err := c.MatchStudentsToJob.Handle(ctx, command.MatchStudentsToJobCommand{
		JobID:         jobID,
		CorrelationID: "cli-" + uuid.NewString(),
	})
	if err != nil {
		return err
	}

	c.Log.Info("matching finished",
		logger.JobID(result.JobID),
		logger.Int("scanned", result.ScannedStudents),
		logger.Int("qualified", result.QualifiedCandidates),
		logger.Int("notified", result.NotificationsSent),
		logger.Latency(result.Duration),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Ranked); err != nil {
		return fmt.Errorf("print ranked list: %w", err)
	}
	return nil
}
