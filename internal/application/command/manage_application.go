package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerhub/careerhub/internal/domain/admission"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MANAGE APPLICATION COMMAND
// Changes an application's status on behalf of the owning institution.
// Admitting consumes a course seat, leaving admitted gives it back.
// The checks and both writes run inside one unit of work.
// ══════════════════════════════════════════════════════════════════════════════

// ManageApplicationCommand contains the data to change an application status.
type ManageApplicationCommand struct {
	// ApplicationID is the application to update.
	ApplicationID string

	// InstitutionID is the caller. It must own the application.
	InstitutionID string

	// NewStatus is the target status.
	NewStatus admission.Status

	// Notes replaces the stored notes when not nil.
	Notes *string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ManageApplicationCommand) Validate() error {
	if c.ApplicationID == "" {
		return errors.New("manage_application: application_id is required")
	}
	if c.InstitutionID == "" {
		return errors.New("manage_application: institution_id is required")
	}
	if !c.NewStatus.IsValid() {
		return fmt.Errorf("manage_application: invalid status: %q", c.NewStatus)
	}
	return nil
}

// ManageApplicationResult contains the outcome of a committed transition.
type ManageApplicationResult struct {
	ApplicationID  string
	StudentID      string
	CourseID       string
	PreviousStatus admission.Status
	NewStatus      admission.Status

	// SeatDelta is what happened to Course.AvailableSeats (-1, 0 or +1).
	SeatDelta int

	// AvailableSeats is the course counter after the transition.
	AvailableSeats int

	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ManageApplicationHandler handles the ManageApplicationCommand.
type ManageApplicationHandler struct {
	uow            admission.UnitOfWork
	eventPublisher shared.EventPublisher
	log            *logger.Logger

	now func() time.Time
}

// NewManageApplicationHandler creates a new ManageApplicationHandler.
func NewManageApplicationHandler(
	uow admission.UnitOfWork,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ManageApplicationHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ManageApplicationHandler{
		uow:            uow,
		eventPublisher: eventPublisher,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the status transition.
//
// NotFound, authorization, conflict and capacity outcomes are returned as
// they are. Any store failure rolls the whole transition back.
func (h *ManageApplicationHandler) Handle(ctx context.Context, cmd ManageApplicationCommand) (*ManageApplicationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("admission", "ManageApplication", shared.ErrValidation, "invalid command", err)
	}

	log := h.log.With(
		logger.Operation("manage_application"),
		logger.ApplicationID(cmd.ApplicationID),
		logger.InstitutionID(cmd.InstitutionID),
	)

	var result *ManageApplicationResult
	err := h.uow.Do(ctx, func(ctx context.Context, repo admission.Repository) error {
		res, err := h.transition(ctx, repo, cmd)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if shared.IsBusinessRule(err) {
			log.Info("transition refused", logger.String("target", cmd.NewStatus.String()), logger.Err(err))
		} else {
			log.Error("transition aborted", logger.String("target", cmd.NewStatus.String()), logger.Err(err))
		}
		return nil, fmt.Errorf("manage_application: %w", err)
	}

	event := shared.NewApplicationStatusChangedEvent(
		result.ApplicationID, cmd.InstitutionID, result.StudentID, result.CourseID,
		result.PreviousStatus.String(), result.NewStatus.String(), result.AvailableSeats,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	log.Info("application status changed",
		logger.String("from", result.PreviousStatus.String()),
		logger.String("to", result.NewStatus.String()),
		logger.CourseID(result.CourseID),
		logger.Int("available_seats", result.AvailableSeats),
	)

	return result, nil
}

// transition runs inside the unit of work and may be re-run on a
// serialization conflict, so it only touches state through repo.
func (h *ManageApplicationHandler) transition(ctx context.Context, repo admission.Repository, cmd ManageApplicationCommand) (*ManageApplicationResult, error) {
	app, err := repo.GetApplication(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, err
	}
	if !app.OwnedBy(cmd.InstitutionID) {
		return nil, shared.ErrNotApplicationOwner
	}

	tr := app.TransitionTo(cmd.NewStatus)

	// Only other applications count. The one being updated may itself be
	// admitted already.
	if tr.RequiresAdmissionChecks() {
		others, err := repo.ListAdmittedApplications(ctx, app.InstitutionID, app.StudentID, app.ID)
		if err != nil {
			return nil, err
		}
		if len(others) > 0 {
			return nil, shared.WrapError("admission", "Admit", shared.ErrConflict,
				fmt.Sprintf("student %s already admitted via application %s", app.StudentID, others[0].ID),
				shared.ErrAlreadyAdmitted)
		}
	}

	course, err := repo.GetCourse(ctx, app.CourseID)
	if err != nil {
		return nil, err
	}

	delta := tr.SeatDelta()
	if delta < 0 && !course.HasSeats() {
		return nil, shared.ErrNoSeatsAvailable
	}
	if delta != 0 {
		course, err = repo.UpdateCourseSeats(ctx, course.ID, delta)
		if err != nil {
			return nil, err
		}
	}

	app.Apply(cmd.NewStatus, cmd.Notes, h.now())
	if err := repo.UpdateApplicationStatus(ctx, app); err != nil {
		return nil, err
	}

	return &ManageApplicationResult{
		ApplicationID:  app.ID,
		StudentID:      app.StudentID,
		CourseID:       app.CourseID,
		PreviousStatus: tr.From,
		NewStatus:      tr.To,
		SeatDelta:      delta,
		AvailableSeats: course.AvailableSeats,
		UpdatedAt:      app.UpdatedAt,
	}, nil
}
