package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository - чтение профилей студентов.
type Repository interface {
	// ListAll возвращает всех студентов в стабильном порядке (по ID).
	ListAll(ctx context.Context) ([]*Student, error)

	// GetByID возвращает студента по ID.
	// Возвращает shared.ErrStudentNotFound, если студент не найден.
	GetByID(ctx context.Context, id string) (*Student, error)
}

// Writer сохраняет профиль. Используется CLI и тестовыми сидами,
// ядро подбора его не вызывает.
type Writer interface {
	Save(ctx context.Context, student *Student) error
}

// CandidateSource поставляет студентов для проверки на одну вакансию.
type CandidateSource interface {
	Candidates(ctx context.Context, jobQualifications []string) ([]*Student, error)
}

// FullScan - CandidateSource поверх полного прохода Repository.ListAll.
func FullScan(repo Repository) CandidateSource {
	return fullScan{repo: repo}
}

type fullScan struct {
	repo Repository
}

func (f fullScan) Candidates(ctx context.Context, _ []string) ([]*Student, error) {
	return f.repo.ListAll(ctx)
}
