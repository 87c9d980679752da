// Package admission содержит модель заявок на курсы и правила переходов
// статуса заявки.
//
// Инварианты:
//
//   - 0 <= Course.AvailableSeats <= Course.TotalSeats
//   - для пары (InstitutionID, StudentID) не более одной заявки в статусе admitted
//
// Проверка и запись выполняются внутри одной атомарной единицы работы
// (UnitOfWork), иначе параллельные запросы нарушат оба инварианта.
package admission

import (
	"strings"
	"time"

	"github.com/careerhub/careerhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status - статус заявки.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAdmitted    Status = "admitted"
	StatusRejected    Status = "rejected"
	StatusWaitingList Status = "waiting_list"
	StatusWithdrawn   Status = "withdrawn"
)

// AllStatuses возвращает все допустимые статусы.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusAdmitted, StatusRejected, StatusWaitingList, StatusWithdrawn}
}

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAdmitted, StatusRejected, StatusWaitingList, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// IsAdmitted - заявка занимает место на курсе.
func (s Status) IsAdmitted() bool {
	return s == StatusAdmitted
}

// String возвращает строковое представление.
func (s Status) String() string {
	return string(s)
}

// ParseStatus разбирает статус из внешнего ввода.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", shared.WrapError("admission", "ParseStatus", shared.ErrInvalidInput,
			"unknown status "+`"`+raw+`"`, shared.ErrInvalidStatus)
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITION
// ══════════════════════════════════════════════════════════════════════════════

// Transition описывает изменение статуса и его влияние на места курса.
type Transition struct {
	From Status
	To   Status
}

// SeatDelta возвращает изменение AvailableSeats:
// -1 при зачислении, +1 при отмене зачисления, иначе 0.
// admitted -> admitted места не меняет.
func (t Transition) SeatDelta() int {
	switch {
	case t.To.IsAdmitted() && !t.From.IsAdmitted():
		return -1
	case t.From.IsAdmitted() && !t.To.IsAdmitted():
		return 1
	default:
		return 0
	}
}

// RequiresAdmissionChecks - целевой статус admitted.
func (t Transition) RequiresAdmissionChecks() bool {
	return t.To.IsAdmitted()
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course - курс учебного заведения с ограниченным числом мест.
type Course struct {
	ID             string    `json:"id"`
	InstitutionID  string    `json:"institution_id"`
	Name           string    `json:"name"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasSeats - есть свободные места.
func (c *Course) HasSeats() bool {
	return c.AvailableSeats > 0
}

// CanApplyDelta проверяет, что после изменения счётчик останется в [0, TotalSeats].
func (c *Course) CanApplyDelta(delta int) bool {
	next := c.AvailableSeats + delta
	return next >= 0 && next <= c.TotalSeats
}

// Validate проверяет инварианты курса.
func (c *Course) Validate() error {
	if c.TotalSeats <= 0 {
		return shared.NewDomainError("admission", "ValidateCourse", shared.ErrValueOutOfRange, "total seats must be positive")
	}
	if c.AvailableSeats < 0 || c.AvailableSeats > c.TotalSeats {
		return shared.ErrSeatRangeViolation
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// Application - заявка студента на курс.
type Application struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	CourseID      string    `json:"course_id"`
	InstitutionID string    `json:"institution_id"`
	Status        Status    `json:"status"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidateNew проверяет заявку перед созданием. Заявка создаётся только
// в статусе pending: место на курсе занимает лишь аллокатор.
// Пустой статус заменяется на pending.
func (a *Application) ValidateNew() error {
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Status != StatusPending {
		return shared.ErrApplicationNotNew
	}
	if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.StudentID) == "" || strings.TrimSpace(a.CourseID) == "" {
		return shared.NewDomainError("admission", "ValidateApplication", shared.ErrInvalidInput, "application id, student id and course id are required")
	}
	return nil
}

// OwnedBy - заявка принадлежит учебному заведению.
func (a *Application) OwnedBy(institutionID string) bool {
	return institutionID != "" && a.InstitutionID == institutionID
}

// TransitionTo возвращает переход из текущего статуса.
func (a *Application) TransitionTo(next Status) Transition {
	return Transition{From: a.Status, To: next}
}

// Apply применяет новый статус и заметки.
// nil notes оставляет прежние заметки.
func (a *Application) Apply(next Status, notes *string, at time.Time) {
	a.Status = next
	if notes != nil {
		n := *notes
		a.Notes = &n
	}
	a.UpdatedAt = at
}
