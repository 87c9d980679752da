package admission

import (
	"context"
)

// Repository - операции хранилища, которые нужны аллокатору.
// Все методы вызываются внутри UnitOfWork.Do и видят одну транзакцию.
type Repository interface {
	// GetApplication возвращает заявку и блокирует её до конца единицы работы.
	// Возвращает shared.ErrApplicationNotFound, если заявки нет.
	GetApplication(ctx context.Context, id string) (*Application, error)

	// ListAdmittedApplications возвращает заявки пары (institution, student)
	// в статусе admitted, кроме excludeID (если не пустой).
	// Сериализует конкурентные вызовы для одной пары.
	ListAdmittedApplications(ctx context.Context, institutionID, studentID, excludeID string) ([]*Application, error)

	// GetCourse возвращает курс.
	// Возвращает shared.ErrCourseNotFound, если курса нет.
	GetCourse(ctx context.Context, id string) (*Course, error)

	// UpdateCourseSeats атомарно меняет AvailableSeats на delta.
	// Возвращает shared.ErrNoSeatsAvailable, если при delta < 0 мест нет,
	// и shared.ErrSeatRangeViolation, если счётчик вышел бы за TotalSeats.
	UpdateCourseSeats(ctx context.Context, id string, delta int) (*Course, error)

	// UpdateApplicationStatus сохраняет статус, заметки и UpdatedAt.
	UpdateApplicationStatus(ctx context.Context, app *Application) error
}

// UnitOfWork выполняет fn атомарно: либо применяются все изменения,
// сделанные через repo, либо ни одного.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Store - создание курсов и заявок вне аллокатора (CLI, сиды, тесты).
type Store interface {
	CreateCourse(ctx context.Context, c *Course) error

	// CreateApplication создаёт заявку в статусе pending (см. ValidateNew).
	// InstitutionID берётся из курса; непустой InstitutionID другого
	// заведения даёт shared.ErrCourseOfOtherOwner.
	CreateApplication(ctx context.Context, a *Application) error
	FindApplication(ctx context.Context, id string) (*Application, error)
	FindCourse(ctx context.Context, id string) (*Course, error)
}
