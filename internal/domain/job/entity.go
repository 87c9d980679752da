// Package job содержит модель вакансии и ранжированный список подходящих
// студентов, который формирует оркестратор подбора.
package job

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/careerhub/careerhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUIREMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Requirements - минимальные требования вакансии.
// nil или 0 означает "нет ограничения".
type Requirements struct {
	MinCertificates *int `json:"min_certificates,omitempty"`
	MinExperience   *int `json:"min_experience,omitempty"` // месяцы
}

// MinCertificatesValue возвращает требование или 0.
func (r Requirements) MinCertificatesValue() int {
	if r.MinCertificates == nil {
		return 0
	}
	return *r.MinCertificates
}

// MinExperienceValue возвращает требование в месяцах или 0.
func (r Requirements) MinExperienceValue() int {
	if r.MinExperience == nil {
		return 0
	}
	return *r.MinExperience
}

// Validate проверяет, что требования неотрицательны.
func (r Requirements) Validate() error {
	if r.MinCertificatesValue() < 0 || r.MinExperienceValue() < 0 {
		return shared.ErrInvalidRequirements
	}
	return nil
}

// Int - helper для заполнения опциональных требований.
func Int(v int) *int {
	return &v
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKED LIST
// ══════════════════════════════════════════════════════════════════════════════

// QualifiedStudent - элемент ранжированного списка.
type QualifiedStudent struct {
	StudentID  string  `json:"student_id"`
	MatchScore float64 `json:"match_score"`
}

// RankedList - список кандидатов, отсортированный по убыванию MatchScore.
type RankedList []QualifiedStudent

// Rank стабильно сортирует список по убыванию балла.
// При равенстве сохраняется порядок сканирования.
func (l RankedList) Rank() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].MatchScore > l[j].MatchScore
	})
}

// IsRanked проверяет порядок по убыванию.
func (l RankedList) IsRanked() bool {
	return sort.SliceIsSorted(l, func(i, j int) bool {
		return l[i].MatchScore > l[j].MatchScore
	})
}

// Top возвращает первые n элементов. n <= 0 означает весь список.
func (l RankedList) Top(n int) RankedList {
	if n <= 0 || n >= len(l) {
		return l
	}
	return l[:n]
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB
// ══════════════════════════════════════════════════════════════════════════════

// Job - вакансия компании.
type Job struct {
	ID             string       `json:"id"`
	CompanyID      string       `json:"company_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Requirements   Requirements `json:"requirements"`
	Qualifications []string     `json:"qualifications"`

	// Заполняется только оркестратором подбора, целиком заменяется
	// при каждом прогоне.
	QualifiedCandidates int        `json:"qualified_candidates"`
	QualifiedStudents   RankedList `json:"qualified_students"`
	MatchedAt           *time.Time `json:"matched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJobParams - параметры для создания вакансии.
type NewJobParams struct {
	ID             string
	CompanyID      string
	Title          string
	Description    string
	Requirements   Requirements
	Qualifications []string
}

// NewJob создаёт вакансию с валидацией.
func NewJob(p NewJobParams) (*Job, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, shared.NewDomainError("job", "Create", shared.ErrInvalidID, "job id is required")
	}
	if strings.TrimSpace(p.CompanyID) == "" {
		return nil, shared.NewDomainError("job", "Create", shared.ErrInvalidID, "company id is required")
	}
	if err := p.Requirements.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Job{
		ID:                p.ID,
		CompanyID:         p.CompanyID,
		Title:             strings.TrimSpace(p.Title),
		Description:       p.Description,
		Requirements:      p.Requirements,
		Qualifications:    p.Qualifications,
		QualifiedStudents: RankedList{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ApplyMatches заменяет ранжированный список.
func (j *Job) ApplyMatches(ranked RankedList, at time.Time) {
	j.QualifiedStudents = ranked
	j.QualifiedCandidates = len(ranked)
	j.MatchedAt = &at
	j.UpdatedAt = at
}

// String - для логов.
func (j *Job) String() string {
	return fmt.Sprintf("job(%s, company=%s, candidates=%d)", j.ID, j.CompanyID, j.QualifiedCandidates)
}
