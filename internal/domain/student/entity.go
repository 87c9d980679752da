package student

import (
	"errors"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE PARTS
// ══════════════════════════════════════════════════════════════════════════════

// Certificate - сертификат из профиля студента.
type Certificate struct {
	Name     string    `json:"name"`
	Issuer   string    `json:"issuer,omitempty"`
	IssuedAt time.Time `json:"issued_at,omitempty"`
}

// WorkExperience - одно место работы. Учитывается только длительность.
type WorkExperience struct {
	Company        string `json:"company,omitempty"`
	Position       string `json:"position,omitempty"`
	DurationMonths int    `json:"duration_months"`
}

// Transcript - академическая выписка.
type Transcript struct {
	Institution string    `json:"institution,omitempty"`
	Program     string    `json:"program,omitempty"`
	GPA         float64   `json:"gpa,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - профиль студента в том виде, в котором его видит ядро подбора.
type Student struct {
	ID             string           `json:"id"`
	Name           string           `json:"name,omitempty"`
	Email          string           `json:"email,omitempty"`
	Qualifications []string         `json:"qualifications"`
	Certificates   []Certificate    `json:"certificates"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Transcripts    []Transcript     `json:"transcripts"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// HasCompletedStudy - есть хотя бы один транскрипт.
// Оценки не анализируются.
func (s *Student) HasCompletedStudy() bool {
	return len(s.Transcripts) > 0
}

// CertificateCount возвращает количество сертификатов.
func (s *Student) CertificateCount() int {
	return len(s.Certificates)
}

// TotalExperienceMonths суммирует опыт работы. Отрицательные значения
// считаются нулём.
func (s *Student) TotalExperienceMonths() int {
	total := 0
	for _, w := range s.WorkExperience {
		if w.DurationMonths > 0 {
			total += w.DurationMonths
		}
	}
	return total
}

// Validate проверяет инварианты профиля.
func (s *Student) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("student id is required")
	}
	for i, w := range s.WorkExperience {
		if w.DurationMonths < 0 {
			return &ValidationError{Field: "work_experience", Index: i, Reason: "duration_months cannot be negative"}
		}
	}
	return nil
}

// ValidationError описывает некорректное поле профиля.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
