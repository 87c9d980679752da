package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/internal/domain/admission"
)

var (
	setStatusInstitution string
	setStatusNotes       string

	setStatusCmd = &cobra.Command{
		Use:   "set-status <application-id> <status>",
		Short: "Change an application's status on behalf of an institution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := admission.ParseStatus(args[1])
			if err != nil {
				return err
			}
			var notes *string
			if cmd.Flags().Changed("notes") {
				notes = &setStatusNotes
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *Container) error {
				return setStatus(ctx, c, command.ManageApplicationCommand{
					ApplicationID: args[0],
					InstitutionID: setStatusInstitution,
					NewStatus:     status,
					Notes:         notes,
					CorrelationID: "cli-" + uuid.NewString(),
				})
			})
		},
	}
)

func init() {
	rootCmd.AddCommand(setStatusCmd)

	setStatusCmd.Flags().StringVarP(&setStatusInstitution, "institution", "i", "", "institution that owns the application")
	setStatusCmd.Flags().StringVar(&setStatusNotes, "notes", "", "replace the application notes")
	_ = setStatusCmd.MarkFlagRequired("institution")
}

func setStatus(ctx context.Context, c *Container, cmd command.ManageApplicationCommand) error {
	if _, err := c.ManageApplication.Handle(ctx, cmd); err != nil {
		return err
	}

	app, err := c.Admissions.FindApplication(ctx, cmd.ApplicationID)
	if err != nil {
		return err
	}
	course, err := c.Admissions.FindCourse(ctx, app.CourseID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Application *admission.Application `json:"application"`
		Course      *admission.Course      `json:"course"`
	}{app, course})
}
