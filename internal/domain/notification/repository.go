package notification

import (
	"context"
)

// Repository - хранилище уведомлений.
type Repository interface {
	// Create сохраняет уведомление и возвращает его ID.
	// Второе job_match для той же пары (пользователь, вакансия) не создаётся:
	// возвращается shared.ErrAlreadyNotified.
	Create(ctx context.Context, n *Notification) (string, error)

	// ListByUser возвращает последние уведомления пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)

	// MarkRead выставляет флаг прочтения.
	// Возвращает shared.ErrNotificationNotFound, если уведомления нет.
	MarkRead(ctx context.Context, id string) error
}
