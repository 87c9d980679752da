package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository and student.Writer for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, name, email, qualifications, certificates, work_experience, transcripts,
	created_at, updated_at
`

// ListAll returns every student ordered by id.
func (r *StudentRepository) ListAll(ctx context.Context) ([]*student.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY id`)
	if err != nil {
		return nil, storeError("student", "ListAll", err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, storeError("student", "ListAll", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("student", "ListAll", err)
	}

	return students, nil
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, storeError("student", "GetByID", err)
	}
	return s, nil
}

// Save inserts or replaces a student profile.
func (r *StudentRepository) Save(ctx context.Context, s *student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}

	certs, err := json.Marshal(nonNil(s.Certificates))
	if err != nil {
		return fmt.Errorf("failed to marshal certificates: %w", err)
	}
	work, err := json.Marshal(nonNil(s.WorkExperience))
	if err != nil {
		return fmt.Errorf("failed to marshal work experience: %w", err)
	}
	transcripts, err := json.Marshal(nonNil(s.Transcripts))
	if err != nil {
		return fmt.Errorf("failed to marshal transcripts: %w", err)
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err = r.conn.Exec(ctx, `
		INSERT INTO students (
			id, name, email, qualifications, certificates, work_experience, transcripts,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			qualifications = EXCLUDED.qualifications,
			certificates = EXCLUDED.certificates,
			work_experience = EXCLUDED.work_experience,
			transcripts = EXCLUDED.transcripts,
			updated_at = EXCLUDED.updated_at
	`,
		s.ID,
		s.Name,
		s.Email,
		nonNil(s.Qualifications),
		certs,
		work,
		transcripts,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return storeError("student", "Save", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper Methods
// ─────────────────────────────────────────────────────────────────────────────

func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var certs, work, transcripts []byte

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Qualifications,
		&certs,
		&work,
		&transcripts,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(certs, &s.Certificates); err != nil {
		return nil, fmt.Errorf("student %s certificates: %w", s.ID, err)
	}
	if err := unmarshalJSONB(work, &s.WorkExperience); err != nil {
		return nil, fmt.Errorf("student %s work experience: %w", s.ID, err)
	}
	if err := unmarshalJSONB(transcripts, &s.Transcripts); err != nil {
		return nil, fmt.Errorf("student %s transcripts: %w", s.ID, err)
	}

	return &s, nil
}

func unmarshalJSONB(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// nonNil keeps empty collections as '[]' / '{}' instead of NULL.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
