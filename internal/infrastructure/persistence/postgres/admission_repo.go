package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/careerhub/careerhub/internal/domain/admission"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMISSION UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// AdmissionUnitOfWork implements admission.UnitOfWork on top of a single
// PostgreSQL transaction. Transactions aborted by serialization failures or
// deadlocks are re-run from the beginning.
type AdmissionUnitOfWork struct {
	conn    *Connection
	retrier *retry.Retrier
	txOpts  TxOptions
}

// NewAdmissionUnitOfWork creates a unit of work bound to conn.
func NewAdmissionUnitOfWork(conn *Connection) *AdmissionUnitOfWork {
	return &AdmissionUnitOfWork{
		conn:    conn,
		retrier: retry.TransactionRetrier(IsSerializationFailure, retry.WithMaxAttempts(conn.config.TxMaxAttempts)),
		txOpts:  DefaultTxOptions(),
	}
}

// Do runs fn inside one transaction. Any error from fn rolls everything back.
func (u *AdmissionUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repo admission.Repository) error) error {
	return u.retrier.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := u.conn.withTimeout(ctx)
		defer cancel()

		err := u.conn.WithTx(ctx, u.txOpts, func(tx pgx.Tx) error {
			return fn(ctx, &admissionTx{tx: tx})
		})
		if err != nil {
			return storeError("admission", "Do", err)
		}
		return nil
	})
}

// admissionTx implements admission.Repository over an open transaction.
type admissionTx struct {
	tx pgx.Tx
}

// GetApplication reads the application and holds its row lock until commit.
func (r *admissionTx) GetApplication(ctx context.Context, id string) (*admission.Application, error) {
	app, err := scanApplication(r.tx.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE id = $1
		FOR UPDATE
	`, id))
	if IsNoRows(err) {
		return nil, shared.ErrApplicationNotFound
	}
	if err != nil {
		return nil, storeError("admission", "GetApplication", err)
	}
	return app, nil
}

// ListAdmittedApplications serializes admissions of one student at one
// institution with a transaction-scoped advisory lock, then reads.
// The lock is taken in its own statement so the read sees rows committed
// while this transaction waited.
func (r *admissionTx) ListAdmittedApplications(ctx context.Context, institutionID, studentID, excludeID string) ([]*admission.Application, error) {
	if _, err := r.tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`,
		institutionID, studentID,
	); err != nil {
		return nil, storeError("admission", "ListAdmittedApplications", err)
	}

	rows, err := r.tx.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE institution_id = $1
		  AND student_id = $2
		  AND status = 'admitted'
		  AND id <> $3
		ORDER BY id
	`, institutionID, studentID, excludeID)
	if err != nil {
		return nil, storeError("admission", "ListAdmittedApplications", err)
	}
	defer rows.Close()

	var apps []*admission.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, storeError("admission", "ListAdmittedApplications", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("admission", "ListAdmittedApplications", err)
	}
	return apps, nil
}

// GetCourse reads the course without locking; seat changes go through
// UpdateCourseSeats.
func (r *admissionTx) GetCourse(ctx context.Context, id string) (*admission.Course, error) {
	c, err := scanCourse(r.tx.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, storeError("admission", "GetCourse", err)
	}
	return c, nil
}

// UpdateCourseSeats applies delta with a single conditional UPDATE so the
// counter can never leave [0, total_seats].
func (r *admissionTx) UpdateCourseSeats(ctx context.Context, id string, delta int) (*admission.Course, error) {
	c, err := scanCourse(r.tx.QueryRow(ctx, `
		UPDATE courses
		SET available_seats = available_seats + $2,
			updated_at = NOW()
		WHERE id = $1
		  AND available_seats + $2 BETWEEN 0 AND total_seats
		RETURNING `+courseColumns,
		id, delta,
	))
	if err == nil {
		return c, nil
	}
	if IsCheckViolation(err) {
		return nil, seatError(delta)
	}
	if !IsNoRows(err) {
		return nil, storeError("admission", "UpdateCourseSeats", err)
	}

	// No row came back: either the course is missing or the range guard failed.
	var exists bool
	if err := r.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, storeError("admission", "UpdateCourseSeats", err)
	}
	if !exists {
		return nil, shared.ErrCourseNotFound
	}
	return nil, seatError(delta)
}

// UpdateApplicationStatus persists status, notes and updated_at.
func (r *admissionTx) UpdateApplicationStatus(ctx context.Context, app *admission.Application) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE applications
		SET status = $2,
			notes = $3,
			updated_at = $4
		WHERE id = $1
	`, app.ID, string(app.Status), app.Notes, app.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyAdmitted
		}
		return storeError("admission", "UpdateApplicationStatus", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrApplicationNotFound
	}
	return nil
}

func seatError(delta int) error {
	if delta < 0 {
		return shared.ErrNoSeatsAvailable
	}
	return shared.ErrSeatRangeViolation
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMISSION STORE
// ══════════════════════════════════════════════════════════════════════════════

// AdmissionStore implements admission.Store: course and application
// creation outside the allocator.
type AdmissionStore struct {
	conn *Connection
}

// NewAdmissionStore creates a new AdmissionStore.
func NewAdmissionStore(conn *Connection) *AdmissionStore {
	return &AdmissionStore{conn: conn}
}

// CreateCourse inserts a course.
func (s *AdmissionStore) CreateCourse(ctx context.Context, c *admission.Course) error {
	if err := c.Validate(); err != nil {
		return err
	}
	stampCreated(&c.CreatedAt, &c.UpdatedAt)

	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	_, err := s.conn.Exec(ctx, `
		INSERT INTO courses (id, institution_id, name, total_seats, available_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.InstitutionID, c.Name, c.TotalSeats, c.AvailableSeats, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("admission", "CreateCourse", shared.ErrAlreadyExists, "course already exists")
		}
		return storeError("admission", "CreateCourse", err)
	}
	return nil
}

// CreateApplication inserts a pending application. The institution comes
// from the course row; a non-empty a.InstitutionID must match it.
func (s *AdmissionStore) CreateApplication(ctx context.Context, a *admission.Application) error {
	if err := a.ValidateNew(); err != nil {
		return err
	}
	stampCreated(&a.CreatedAt, &a.UpdatedAt)

	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	var institutionID string
	err := s.conn.QueryRow(ctx, `
		INSERT INTO applications (id, student_id, course_id, institution_id, status, notes, created_at, updated_at)
		SELECT $1, $2, c.id, c.institution_id, $5, $6, $7, $8
		FROM courses c
		WHERE c.id = $3
		  AND ($4 = '' OR c.institution_id = $4)
		RETURNING institution_id
	`, a.ID, a.StudentID, a.CourseID, a.InstitutionID, string(a.Status), a.Notes, a.CreatedAt, a.UpdatedAt).Scan(&institutionID)
	switch {
	case err == nil:
		a.InstitutionID = institutionID
		return nil
	case IsNoRows(err):
		return s.courseMismatch(ctx, a.CourseID)
	case IsUniqueViolation(err):
		return shared.NewDomainError("admission", "CreateApplication", shared.ErrAlreadyExists, "application already exists")
	default:
		return storeError("admission", "CreateApplication", err)
	}
}

// courseMismatch explains why INSERT ... SELECT wrote nothing.
func (s *AdmissionStore) courseMismatch(ctx context.Context, courseID string) error {
	var exists bool
	if err := s.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return storeError("admission", "CreateApplication", err)
	}
	if !exists {
		return shared.ErrCourseNotFound
	}
	return shared.ErrCourseOfOtherOwner
}

// FindApplication reads an application outside a unit of work.
func (s *AdmissionStore) FindApplication(ctx context.Context, id string) (*admission.Application, error) {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	app, err := scanApplication(s.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrApplicationNotFound
	}
	if err != nil {
		return nil, storeError("admission", "FindApplication", err)
	}
	return app, nil
}

// FindCourse reads a course outside a unit of work.
func (s *AdmissionStore) FindCourse(ctx context.Context, id string) (*admission.Course, error) {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	c, err := scanCourse(s.conn.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, storeError("admission", "FindCourse", err)
	}
	return c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helper Methods
// ─────────────────────────────────────────────────────────────────────────────

const applicationColumns = `id, student_id, course_id, institution_id, status, notes, created_at, updated_at`

const courseColumns = `id, institution_id, name, total_seats, available_seats, created_at, updated_at`

func scanApplication(row pgx.Row) (*admission.Application, error) {
	var a admission.Application
	var status string
	if err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.CourseID,
		&a.InstitutionID,
		&status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = admission.Status(status)
	return &a, nil
}

func scanCourse(row pgx.Row) (*admission.Course, error) {
	var c admission.Course
	if err := row.Scan(
		&c.ID,
		&c.InstitutionID,
		&c.Name,
		&c.TotalSeats,
		&c.AvailableSeats,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func stampCreated(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
