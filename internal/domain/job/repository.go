package job

import (
	"context"
	"errors"
)

// Repository - хранилище вакансий.
type Repository interface {
	// Create сохраняет новую вакансию.
	Create(ctx context.Context, job *Job) error

	// GetByID возвращает вакансию.
	// Возвращает shared.ErrJobNotFound, если вакансия не найдена.
	GetByID(ctx context.Context, id string) (*Job, error)

	// UpdateMatches целиком заменяет QualifiedCandidates и QualifiedStudents.
	UpdateMatches(ctx context.Context, id string, update MatchUpdate) error
}

// MatchUpdate - результат одного прогона подбора.
type MatchUpdate struct {
	QualifiedCandidates int
	QualifiedStudents   RankedList
}

// NewMatchUpdate строит обновление с согласованным счётчиком.
func NewMatchUpdate(ranked RankedList) MatchUpdate {
	if ranked == nil {
		ranked = RankedList{}
	}
	return MatchUpdate{
		QualifiedCandidates: len(ranked),
		QualifiedStudents:   ranked,
	}
}

// ErrMatchCacheMiss - в кэше нет списка для вакансии.
var ErrMatchCacheMiss = errors.New("match cache miss")

// MatchCache - кэш ранжированных списков поверх Repository.
// Ошибки кэша не должны ломать основной сценарий.
type MatchCache interface {
	GetMatches(ctx context.Context, jobID string) (RankedList, error)
	SetMatches(ctx context.Context, jobID string, ranked RankedList) error
	InvalidateMatches(ctx context.Context, jobID string) error
}
