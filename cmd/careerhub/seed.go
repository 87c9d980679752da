package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/internal/domain/admission"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
	"github.com/careerhub/careerhub/pkg/logger"
)

// seedFile is the fixture format accepted by `careerhub seed`.
//
// Applications are created pending. A non-pending status in the fixture is
// applied afterwards through the allocator, so admitted applications take
// a seat from available_seats like any other admission.
type seedFile struct {
	Students     []*student.Student       `json:"students"`
	Courses      []seedCourse             `json:"courses"`
	Applications []*admission.Application `json:"applications"`
}

// seedCourse leaves available_seats optional: absent means an empty course.
type seedCourse struct {
	ID             string `json:"id"`
	InstitutionID  string `json:"institution_id"`
	Name           string `json:"name"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats *int   `json:"available_seats"`
}

func (sc seedCourse) course() *admission.Course {
	c := &admission.Course{
		ID:             sc.ID,
		InstitutionID:  sc.InstitutionID,
		Name:           sc.Name,
		TotalSeats:     sc.TotalSeats,
		AvailableSeats: sc.TotalSeats,
	}
	if sc.AvailableSeats != nil {
		c.AvailableSeats = *sc.AvailableSeats
	}
	return c
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.json>",
	Short: "Load students, courses and applications from a JSON fixture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var fx seedFile
		if err := json.Unmarshal(raw, &fx); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		return withContainer(cmd.Context(), func(ctx context.Context, c *Container) error {
			return seed(ctx, c, &fx)
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seed is idempotent for students (upsert); courses and applications that
// already exist are skipped, including their status change.
func seed(ctx context.Context, c *Container, fx *seedFile) error {
	for _, s := range fx.Students {
		if err := c.Students.Save(ctx, s); err != nil {
			return fmt.Errorf("student %s: %w", s.ID, err)
		}
	}

	var courses, apps int
	for _, sc := range fx.Courses {
		if err := c.Admissions.CreateCourse(ctx, sc.course()); err != nil {
			if shared.IsAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("course %s: %w", sc.ID, err)
		}
		courses++
	}

	for _, a := range fx.Applications {
		target := a.Status
		a.Status = admission.StatusPending
		if err := c.Admissions.CreateApplication(ctx, a); err != nil {
			if shared.IsAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("application %s: %w", a.ID, err)
		}
		apps++

		if target == "" || target == admission.StatusPending {
			continue
		}
		if _, err := c.ManageApplication.Handle(ctx, command.ManageApplicationCommand{
			ApplicationID: a.ID,
			InstitutionID: a.InstitutionID,
			NewStatus:     target,
		}); err != nil {
			return fmt.Errorf("application %s -> %s: %w", a.ID, target, err)
		}
	}

	c.Log.Info("seed loaded",
		logger.Int("students", len(fx.Students)),
		logger.Int("courses", courses),
		logger.Int("applications", apps),
	)
	return nil
}
