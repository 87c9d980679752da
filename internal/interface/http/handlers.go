package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/internal/application/query"
	"github.com/careerhub/careerhub/internal/domain/admission"
	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/matching"
	"github.com/careerhub/careerhub/internal/domain/notification"
	"github.com/careerhub/careerhub/internal/interface/http/handlers"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return writeJSON(c, fiber.StatusOK, fiber.Map{
		"name":        "Career Hub API",
		"version":     "v1",
		"description": "Candidate matching and admission allocation",
		"endpoints": fiber.Map{
			"health":       "/health",
			"jobs":         "/api/v1/jobs",
			"matches":      "/api/v1/jobs/{id}/matches",
			"applications": "/api/v1/applications/{id}/status",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.deps.HealthChecker.Check(c.UserContext())
	if !status.Healthy {
		return writeJSON(c, fiber.StatusServiceUnavailable, status)
	}
	return writeJSON(c, fiber.StatusOK, status)
}

// handleLive answers the liveness check.
func (s *Server) handleLive(c *fiber.Ctx) error {
	return writeJSON(c, fiber.StatusOK, fiber.Map{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createJobRequest struct {
	ID             string           `json:"id"`
	CompanyID      string           `json:"company_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Requirements   job.Requirements `json:"requirements"`
	Qualifications []string         `json:"qualifications"`
}

// matchResultResponse is the public view of one matching run.
type matchResultResponse struct {
	JobID               string         `json:"job_id"`
	ScannedStudents     int            `json:"scanned_students"`
	QualifiedCandidates int            `json:"qualified_candidates"`
	QualifiedStudents   job.RankedList `json:"qualified_students"`
	NotificationsSent   int            `json:"notifications_sent"`
	NotificationsFailed int            `json:"notifications_failed"`
	AlreadyNotified     int            `json:"already_notified"`
	Rejections          map[string]int `json:"rejections,omitempty"`
	DurationMs          int64          `json:"duration_ms"`
}

func newMatchResultResponse(r *command.MatchStudentsToJobResult) *matchResultResponse {
	return &matchResultResponse{
		JobID:               r.JobID,
		ScannedStudents:     r.ScannedStudents,
		QualifiedCandidates: r.QualifiedCandidates,
		QualifiedStudents:   r.Ranked,
		NotificationsSent:   r.NotificationsSent,
		NotificationsFailed: r.NotificationsFailed,
		AlreadyNotified:     r.AlreadyNotified,
		Rejections:          r.Rejections,
		DurationMs:          r.Duration.Milliseconds(),
	}
}

type createJobResponse struct {
	Job        *job.Job             `json:"job"`
	Match      *matchResultResponse `json:"match,omitempty"`
	MatchError string               `json:"match_error,omitempty"`
}

// handleCreateJob handles POST /api/v1/jobs.
// The job is stored first and then matched right away. A failed matching run
// does not undo the job; it is reported in match_error and can be retried
// through POST /jobs/:id/match.
func (s *Server) handleCreateJob(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}
	if strings.TrimSpace(req.ID) == "" {
		req.ID = s.deps.NewID()
	}

	j, err := job.NewJob(job.NewJobParams{
		ID:             req.ID,
		CompanyID:      req.CompanyID,
		Title:          req.Title,
		Description:    req.Description,
		Requirements:   req.Requirements,
		Qualifications: req.Qualifications,
	})
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := s.deps.Jobs.Create(ctx, j); err != nil {
		return err
	}

	resp := createJobResponse{Job: j}
	result, err := s.deps.MatchStudentsToJob.Handle(ctx, command.MatchStudentsToJobCommand{
		JobID:         j.ID,
		CorrelationID: requestID(c),
	})
	if err != nil {
		s.logger.Warn("matching after job creation failed", logger.JobID(j.ID), logger.Err(err))
		resp.MatchError = err.Error()
	} else {
		j.ApplyMatches(result.Ranked, time.Now().UTC())
		resp.Match = newMatchResultResponse(result)
	}

	return writeJSON(c, fiber.StatusCreated, resp)
}

// handleGetJob handles GET /api/v1/jobs/:id.
func (s *Server) handleGetJob(c *fiber.Ctx) error {
	j, err := s.deps.Jobs.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return writeJSON(c, fiber.StatusOK, j)
}

// handleMatchJob handles POST /api/v1/jobs/:id/match and re-runs matching
// for an existing job.
func (s *Server) handleMatchJob(c *fiber.Ctx) error {
	result, err := s.deps.MatchStudentsToJob.Handle(c.UserContext(), command.MatchStudentsToJobCommand{
		JobID:         c.Params("id"),
		CorrelationID: requestID(c),
	})
	if err != nil {
		return err
	}
	return writeJSON(c, fiber.StatusOK, newMatchResultResponse(result))
}

// handleGetJobMatches handles GET /api/v1/jobs/:id/matches.
//
// Query parameters:
//   - limit: top N candidates (default from config, 0 = all)
//   - min_quality: excellent, good, fair, poor or none
func (s *Server) handleGetJobMatches(c *fiber.Ctx) error {
	minQuality, err := parseMatchQuality(c.Query("min_quality"))
	if err != nil {
		return err
	}

	q := query.GetJobMatchesQuery{
		JobID:      c.Params("id"),
		Limit:      c.QueryInt("limit", s.config.DefaultMatchLimit),
		MinQuality: minQuality,
	}

	result, err := s.deps.GetJobMatches.Handle(c.UserContext(), q)
	if err != nil {
		return err
	}

	return writeJSONWithMeta(c, fiber.StatusOK, result, &ResponseMeta{TotalCount: result.QualifiedCandidates})
}

func parseMatchQuality(raw string) (matching.MatchQuality, error) {
	q := matching.MatchQuality(strings.ToLower(strings.TrimSpace(raw)))
	switch q {
	case "", matching.MatchQualityExcellent, matching.MatchQualityGood,
		matching.MatchQualityFair, matching.MatchQualityPoor, matching.MatchQualityNone:
		return q, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "min_quality must be one of excellent, good, fair, poor, none")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMISSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type updateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type updateStatusResponse struct {
	ApplicationID  string    `json:"application_id"`
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	SeatDelta      int       `json:"seat_delta"`
	AvailableSeats int       `json:"available_seats"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// handleUpdateApplicationStatus handles PATCH /api/v1/applications/:id/status.
// The caller institution comes from RequireInstitution.
func (s *Server) handleUpdateApplicationStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}

	status, err := admission.ParseStatus(req.Status)
	if err != nil {
		return err
	}

	result, err := s.deps.ManageApplication.Handle(c.UserContext(), command.ManageApplicationCommand{
		ApplicationID: c.Params("id"),
		InstitutionID: handlers.InstitutionID(c),
		NewStatus:     status,
		Notes:         req.Notes,
		CorrelationID: requestID(c),
	})
	if err != nil {
		return err
	}

	return writeJSON(c, fiber.StatusOK, updateStatusResponse{
		ApplicationID:  result.ApplicationID,
		StudentID:      result.StudentID,
		CourseID:       result.CourseID,
		PreviousStatus: result.PreviousStatus.String(),
		Status:         result.NewStatus.String(),
		SeatDelta:      result.SeatDelta,
		AvailableSeats: result.AvailableSeats,
		UpdatedAt:      result.UpdatedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListNotifications handles GET /api/v1/students/:id/notifications.
func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit cannot be negative")
	}

	items, err := s.deps.Notifications.ListByUser(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*notification.Notification{}
	}

	return writeJSONWithMeta(c, fiber.StatusOK, items, &ResponseMeta{TotalCount: len(items)})
}

// handleMarkNotificationRead handles POST /api/v1/notifications/:id/read.
func (s *Server) handleMarkNotificationRead(c *fiber.Ctx) error {
	if err := s.deps.Notifications.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return writeJSON(c, fiber.StatusOK, fiber.Map{"id": c.Params("id"), "is_read": true})
}
