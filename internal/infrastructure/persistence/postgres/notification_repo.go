package postgres

import (
	"context"

	"github.com/careerhub/careerhub/internal/domain/notification"
	"github.com/careerhub/careerhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository for PostgreSQL.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

// DefaultNotificationLimit caps ListByUser when no limit is given.
const DefaultNotificationLimit = 50

// Create inserts a notification and returns its ID. A repeated job
// notification for the same user hits uniq_notifications_per_job and
// comes back as shared.ErrAlreadyNotified.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) (string, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var id string
	err := r.conn.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, job_id, company_id, title, message, is_read, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
		ON CONFLICT (user_id, job_id, type) WHERE job_id IS NOT NULL DO NOTHING
		RETURNING id::text
	`,
		n.ID,
		n.UserID,
		string(n.Type),
		n.JobID,
		n.CompanyID,
		n.Title,
		n.Message,
		n.IsRead,
		n.CreatedAt,
	).Scan(&id)
	if IsNoRows(err) {
		return "", shared.ErrAlreadyNotified
	}
	if err != nil {
		return "", storeError("notification", "Create", err)
	}
	return id, nil
}

// ListByUser returns the newest notifications of a user first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT id::text, user_id, type, COALESCE(job_id, ''), COALESCE(company_id, ''),
			   title, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, storeError("notification", "ListByUser", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var typ string
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&typ,
			&n.JobID,
			&n.CompanyID,
			&n.Title,
			&n.Message,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, storeError("notification", "ListByUser", err)
		}
		n.Type = notification.Type(typ)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("notification", "ListByUser", err)
	}
	return out, nil
}

// MarkRead sets is_read on a notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id::text = $1`, id)
	if err != nil {
		return storeError("notification", "MarkRead", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotificationNotFound
	}
	return nil
}
