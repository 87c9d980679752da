// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/matching"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET JOB MATCHES QUERY
// Возвращает ранжированный список кандидатов вакансии.
// Сначала читает кэш, при промахе - хранилище, после чего прогревает кэш.
// ══════════════════════════════════════════════════════════════════════════════

// GetJobMatchesQuery содержит параметры запроса.
type GetJobMatchesQuery struct {
	// JobID - вакансия.
	JobID string

	// Limit - сколько первых кандидатов вернуть (0 = все, максимум 500).
	Limit int

	// MinQuality - отсечь кандидатов ниже указанного качества.
	MinQuality matching.MatchQuality
}

// Validate проверяет корректность параметров запроса.
func (q *GetJobMatchesQuery) Validate() error {
	if q.JobID == "" {
		return errors.New("job_id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// JobMatchDTO - один кандидат в ответе.
type JobMatchDTO struct {
	Position   int                   `json:"position"`
	StudentID  string                `json:"student_id"`
	MatchScore float64               `json:"match_score"`
	Quality    matching.MatchQuality `json:"quality"`
}

// GetJobMatchesResult содержит результат запроса.
type GetJobMatchesResult struct {
	JobID               string        `json:"job_id"`
	QualifiedCandidates int           `json:"qualified_candidates"`
	Matches             []JobMatchDTO `json:"matches"`
	FromCache           bool          `json:"from_cache"`
}

// GetJobMatchesHandler обрабатывает запрос.
type GetJobMatchesHandler struct {
	jobs  job.Repository
	cache job.MatchCache
	log   *logger.Logger
}

// NewGetJobMatchesHandler создаёт обработчик. cache может быть nil.
func NewGetJobMatchesHandler(jobs job.Repository, cache job.MatchCache, log *logger.Logger) *GetJobMatchesHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetJobMatchesHandler{jobs: jobs, cache: cache, log: log}
}

// Handle выполняет запрос.
func (h *GetJobMatchesHandler) Handle(ctx context.Context, q GetJobMatchesQuery) (*GetJobMatchesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("job", "GetJobMatches", shared.ErrValidation, "invalid query", err)
	}

	ranked, fromCache, err := h.load(ctx, q.JobID)
	if err != nil {
		return nil, err
	}

	result := &GetJobMatchesResult{
		JobID:               q.JobID,
		QualifiedCandidates: len(ranked),
		Matches:             make([]JobMatchDTO, 0, len(ranked)),
		FromCache:           fromCache,
	}

	minScore := minScoreFor(q.MinQuality)
	for i, m := range ranked {
		if m.MatchScore < minScore {
			// Список отсортирован, дальше только ниже.
			break
		}
		result.Matches = append(result.Matches, JobMatchDTO{
			Position:   i + 1,
			StudentID:  m.StudentID,
			MatchScore: m.MatchScore,
			Quality:    matching.MatchScore(m.MatchScore).Quality(),
		})
		if q.Limit > 0 && len(result.Matches) == q.Limit {
			break
		}
	}

	return result, nil
}

func (h *GetJobMatchesHandler) load(ctx context.Context, jobID string) (job.RankedList, bool, error) {
	if h.cache != nil {
		ranked, err := h.cache.GetMatches(ctx, jobID)
		if err == nil {
			return ranked, true, nil
		}
		if !errors.Is(err, job.ErrMatchCacheMiss) {
			h.log.Warn("match cache read failed", logger.JobID(jobID), logger.Err(err))
		}
	}

	j, err := h.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("get_job_matches: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.SetMatches(ctx, jobID, j.QualifiedStudents); err != nil {
			h.log.Warn("match cache warmup failed", logger.JobID(jobID), logger.Err(err))
		}
	}
	return j.QualifiedStudents, false, nil
}

func minScoreFor(q matching.MatchQuality) float64 {
	switch q {
	case matching.MatchQualityExcellent:
		return 80
	case matching.MatchQualityGood:
		return 60
	case matching.MatchQualityFair:
		return 40
	case matching.MatchQualityPoor:
		return 20
	default:
		return 0
	}
}
