package matching

import (
	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBILITY CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Check - одна независимая проверка допуска студента к вакансии.
// Отсутствующие данные означают "не выполнено", если требование задано,
// и "выполнено", если требования нет.
type Check struct {
	Name string
	Pass func(s *student.Student, j *job.Job) bool
}

// Названия стандартных проверок.
const (
	CheckAcademic     = "academic_completion"
	CheckCertificates = "certificate_sufficiency"
	CheckExperience   = "experience_sufficiency"
	CheckRelevance    = "qualification_relevance"
)

// AcademicCompletion - у студента есть хотя бы один транскрипт.
func AcademicCompletion() Check {
	return Check{Name: CheckAcademic, Pass: func(s *student.Student, _ *job.Job) bool {
		return s.HasCompletedStudy()
	}}
}

// CertificateSufficiency - сертификатов не меньше требуемого.
func CertificateSufficiency() Check {
	return Check{Name: CheckCertificates, Pass: func(s *student.Student, j *job.Job) bool {
		need := j.Requirements.MinCertificatesValue()
		if need <= 0 {
			return true
		}
		return s.CertificateCount() >= need
	}}
}

// ExperienceSufficiency - суммарный стаж в месяцах не меньше требуемого.
func ExperienceSufficiency() Check {
	return Check{Name: CheckExperience, Pass: func(s *student.Student, j *job.Job) bool {
		need := j.Requirements.MinExperienceValue()
		if need <= 0 {
			return true
		}
		return s.TotalExperienceMonths() >= need
	}}
}

// QualificationRelevance - хотя бы одна пара квалификаций совпадает
// без учёта регистра.
func QualificationRelevance() Check {
	return Check{Name: CheckRelevance, Pass: func(s *student.Student, j *job.Job) bool {
		wanted := normalize(j.Qualifications)
		if len(wanted) == 0 {
			return true
		}
		have := normalize(s.Qualifications)
		for _, w := range wanted {
			if matchesAny(w, have) {
				return true
			}
		}
		return false
	}}
}

// DefaultChecks возвращает стандартный конвейер в фиксированном порядке.
func DefaultChecks() []Check {
	return []Check{
		AcademicCompletion(),
		CertificateSufficiency(),
		ExperienceSufficiency(),
		QualificationRelevance(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator прогоняет проверки по порядку и останавливается на первой
// неудачной.
type Evaluator struct {
	checks []Check
}

// NewEvaluator создаёт Evaluator. Без аргументов используется DefaultChecks.
func NewEvaluator(checks ...Check) *Evaluator {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	return &Evaluator{checks: checks}
}

// With возвращает новый Evaluator с дополнительными проверками в конце.
func (e *Evaluator) With(extra ...Check) *Evaluator {
	checks := make([]Check, 0, len(e.checks)+len(extra))
	checks = append(checks, e.checks...)
	checks = append(checks, extra...)
	return &Evaluator{checks: checks}
}

// Evaluate возвращает результат и имя первой проваленной проверки.
func (e *Evaluator) Evaluate(s *student.Student, j *job.Job) (bool, string) {
	if s == nil || j == nil {
		return false, "missing_input"
	}
	for _, c := range e.checks {
		if !c.Pass(s, j) {
			return false, c.Name
		}
	}
	return true, ""
}

// IsQualified - все проверки пройдены.
func (e *Evaluator) IsQualified(s *student.Student, j *job.Job) bool {
	ok, _ := e.Evaluate(s, j)
	return ok
}

// IsQualified прогоняет стандартный конвейер.
func IsQualified(s *student.Student, j *job.Job) bool {
	return NewEvaluator().IsQualified(s, j)
}
