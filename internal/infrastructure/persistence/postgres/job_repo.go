package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// JobRepository implements job.Repository for PostgreSQL.
type JobRepository struct {
	conn *Connection
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(conn *Connection) *JobRepository {
	return &JobRepository{conn: conn}
}

// Create inserts a new job. The ranked list starts empty.
func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	ranked, err := json.Marshal(nonNil(j.QualifiedStudents))
	if err != nil {
		return fmt.Errorf("failed to marshal qualified students: %w", err)
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err = r.conn.Exec(ctx, `
		INSERT INTO jobs (
			id, company_id, title, description, min_certificates, min_experience,
			qualifications, qualified_candidates, qualified_students, matched_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		j.ID,
		j.CompanyID,
		j.Title,
		j.Description,
		j.Requirements.MinCertificates,
		j.Requirements.MinExperience,
		nonNil(j.Qualifications),
		len(j.QualifiedStudents),
		ranked,
		j.MatchedAt,
		j.CreatedAt,
		j.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("job", "Create", shared.ErrAlreadyExists, "job already exists")
		}
		return storeError("job", "Create", err)
	}
	return nil
}

// GetByID returns a job with its current ranked list.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*job.Job, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var j job.Job
	var ranked []byte

	err := r.conn.QueryRow(ctx, `
		SELECT id, company_id, title, description, min_certificates, min_experience,
			   qualifications, qualified_candidates, qualified_students, matched_at,
			   created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, id).Scan(
		&j.ID,
		&j.CompanyID,
		&j.Title,
		&j.Description,
		&j.Requirements.MinCertificates,
		&j.Requirements.MinExperience,
		&j.Qualifications,
		&j.QualifiedCandidates,
		&ranked,
		&j.MatchedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrJobNotFound
	}
	if err != nil {
		return nil, storeError("job", "GetByID", err)
	}

	j.QualifiedStudents = job.RankedList{}
	if err := unmarshalJSONB(ranked, &j.QualifiedStudents); err != nil {
		return nil, fmt.Errorf("job %s qualified students: %w", j.ID, err)
	}

	return &j, nil
}

// UpdateMatches replaces the candidate count and the ranked list in one statement.
func (r *JobRepository) UpdateMatches(ctx context.Context, id string, update job.MatchUpdate) error {
	ranked, err := json.Marshal(nonNil(update.QualifiedStudents))
	if err != nil {
		return fmt.Errorf("failed to marshal qualified students: %w", err)
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	tag, err := r.conn.Exec(ctx, `
		UPDATE jobs
		SET qualified_candidates = $2,
			qualified_students = $3,
			matched_at = $4,
			updated_at = $4
		WHERE id = $1
	`, id, update.QualifiedCandidates, ranked, now)
	if err != nil {
		return storeError("job", "UpdateMatches", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrJobNotFound
	}
	return nil
}
