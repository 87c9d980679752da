// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/matching"
	"github.com/careerhub/careerhub/internal/domain/notification"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH STUDENTS TO JOB COMMAND
// Runs once per job posting: scans students, keeps the qualified ones,
// ranks them by match score and stores the ranked list on the job.
// Every qualified student gets one job_match notification. A repeated run
// replaces the ranking but never notifies the same student twice.
// ══════════════════════════════════════════════════════════════════════════════

// MatchStudentsToJobCommand contains the data to match a freshly posted job.
type MatchStudentsToJobCommand struct {
	// JobID is the job to match. It must already be persisted.
	JobID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c MatchStudentsToJobCommand) Validate() error {
	if c.JobID == "" {
		return errors.New("match_students_to_job: job_id is required")
	}
	return nil
}

// MatchStudentsToJobResult contains the result of a matching run.
type MatchStudentsToJobResult struct {
	JobID string

	// ScannedStudents is how many profiles went through the evaluator.
	ScannedStudents int

	// QualifiedCandidates always equals len(Ranked).
	QualifiedCandidates int

	// Ranked is sorted by descending score, ties in scan order.
	Ranked job.RankedList

	NotificationsSent   int
	NotificationsFailed int

	// AlreadyNotified counts students skipped because an earlier run
	// on the same job notified them.
	AlreadyNotified int

	// Rejections counts students per failed eligibility check.
	Rejections map[string]int

	Duration time.Duration
}

// NotificationGate decides whether a qualified student is notified.
// nil means everyone is.
type NotificationGate func(studentID string) bool

// MatchStudentsToJobDeps groups the handler's collaborators.
type MatchStudentsToJobDeps struct {
	Jobs          job.Repository
	Candidates    student.CandidateSource
	Notifications notification.Repository
	Evaluator     *matching.Evaluator
	Scorer        *matching.Scorer
	Publisher     shared.EventPublisher
	Logger        *logger.Logger

	// Optional.
	Cache job.MatchCache
	Gate  NotificationGate
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MatchStudentsToJobHandler handles the MatchStudentsToJobCommand.
type MatchStudentsToJobHandler struct {
	jobs          job.Repository
	candidates    student.CandidateSource
	notifications notification.Repository
	evaluator     *matching.Evaluator
	scorer        *matching.Scorer
	cache         job.MatchCache
	gate          NotificationGate
	publisher     shared.EventPublisher
	log           *logger.Logger

	newID func() string
	now   func() time.Time
}

// NewMatchStudentsToJobHandler creates a new MatchStudentsToJobHandler.
func NewMatchStudentsToJobHandler(deps MatchStudentsToJobDeps) *MatchStudentsToJobHandler {
	h := &MatchStudentsToJobHandler{
		jobs:          deps.Jobs,
		candidates:    deps.Candidates,
		notifications: deps.Notifications,
		evaluator:     deps.Evaluator,
		scorer:        deps.Scorer,
		cache:         deps.Cache,
		gate:          deps.Gate,
		publisher:     deps.Publisher,
		log:           deps.Logger,
		newID:         func() string { return uuid.NewString() },
		now:           func() time.Time { return time.Now().UTC() },
	}
	if h.evaluator == nil {
		h.evaluator = matching.NewEvaluator()
	}
	if h.scorer == nil {
		h.scorer = matching.DefaultScorer()
	}
	if h.publisher == nil {
		h.publisher = shared.NopPublisher{}
	}
	if h.log == nil {
		h.log = logger.Nop()
	}
	return h
}

// Handle executes the matching run.
//
// A failing student scan aborts the run before anything is persisted.
// Notifications are best effort: a failed one is logged and skipped, and
// the ones already created stay even if persisting the ranked list fails.
func (h *MatchStudentsToJobHandler) Handle(ctx context.Context, cmd MatchStudentsToJobCommand) (*MatchStudentsToJobResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("matching", "MatchStudentsToJob", shared.ErrValidation, "invalid command", err)
	}

	started := time.Now()
	log := h.log.With(logger.Operation("match_students_to_job"), logger.JobID(cmd.JobID))
	if cmd.CorrelationID != "" {
		log = log.With(logger.String("correlation_id", cmd.CorrelationID))
	}

	j, err := h.jobs.GetByID(ctx, cmd.JobID)
	if err != nil {
		return nil, fmt.Errorf("match_students_to_job: load job: %w", err)
	}

	students, err := h.candidates.Candidates(ctx, j.Qualifications)
	if err != nil {
		log.Error("student scan failed, ranked list not persisted", logger.Err(err))
		return nil, fmt.Errorf("match_students_to_job: scan students: %w", err)
	}

	result := &MatchStudentsToJobResult{
		JobID:           j.ID,
		ScannedStudents: len(students),
		Ranked:          make(job.RankedList, 0),
		Rejections:      make(map[string]int),
	}

	for _, s := range students {
		ok, failed := h.evaluator.Evaluate(s, j)
		if !ok {
			result.Rejections[failed]++
			continue
		}

		score := h.scorer.Score(s, j)
		result.Ranked = append(result.Ranked, job.QualifiedStudent{
			StudentID:  s.ID,
			MatchScore: score.Float64(),
		})

		if h.gate != nil && !h.gate(s.ID) {
			continue
		}
		err := h.notify(ctx, j, s.ID, score)
		if errors.Is(err, shared.ErrAlreadyNotified) {
			result.AlreadyNotified++
			continue
		}
		if err != nil {
			result.NotificationsFailed++
			log.Warn("job match notification failed",
				logger.StudentID(s.ID),
				logger.Err(err),
			)
			continue
		}
		result.NotificationsSent++
	}

	result.Ranked.Rank()
	result.QualifiedCandidates = len(result.Ranked)

	if err := h.jobs.UpdateMatches(ctx, j.ID, job.NewMatchUpdate(result.Ranked)); err != nil {
		log.Error("persist ranked list failed", logger.Err(err))
		return nil, fmt.Errorf("match_students_to_job: persist matches: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.SetMatches(ctx, j.ID, result.Ranked); err != nil {
			log.Warn("match cache write failed, invalidating", logger.Err(err))
			if err := h.cache.InvalidateMatches(ctx, j.ID); err != nil {
				log.Warn("match cache invalidation failed", logger.Err(err))
			}
		}
	}

	topScore := 0.0
	if len(result.Ranked) > 0 {
		topScore = result.Ranked[0].MatchScore
	}
	event := shared.NewJobMatchedEvent(j.ID, j.CompanyID, result.ScannedStudents,
		result.QualifiedCandidates, result.NotificationsSent, topScore)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	result.Duration = time.Since(started)
	log.Info("job matched",
		logger.Int("scanned", result.ScannedStudents),
		logger.Int("qualified", result.QualifiedCandidates),
		logger.Int("notified", result.NotificationsSent),
		logger.Int("notify_failed", result.NotificationsFailed),
		logger.Int("already_notified", result.AlreadyNotified),
		logger.Latency(result.Duration),
	)

	return result, nil
}

func (h *MatchStudentsToJobHandler) notify(ctx context.Context, j *job.Job, studentID string, score matching.MatchScore) error {
	n, err := notification.NewJobMatch(notification.JobMatchParams{
		ID:         h.newID(),
		UserID:     studentID,
		JobID:      j.ID,
		CompanyID:  j.CompanyID,
		JobTitle:   j.Title,
		MatchScore: score.Float64(),
	})
	if err != nil {
		return err
	}

	id, err := h.notifications.Create(ctx, n)
	if err != nil {
		return err
	}

	_ = h.publisher.Publish(shared.NewNotificationCreatedEvent(id, studentID, string(n.Type), j.ID))
	return nil
}
