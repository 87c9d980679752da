package matching

import (
	"fmt"
	"math"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/student"
)

// Scorer считает оценку совместимости для студентов, прошедших Evaluator.
type Scorer struct {
	weights MatchWeights
}

// NewScorer создаёт Scorer с заданными весами.
func NewScorer(w MatchWeights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// DefaultScorer - Scorer с весами 40/20/20/20.
func DefaultScorer() *Scorer {
	return &Scorer{weights: DefaultMatchWeights()}
}

// Weights возвращает используемые веса.
func (sc *Scorer) Weights() MatchWeights {
	return sc.weights
}

// Score возвращает итоговую оценку в [0, 100].
func (sc *Scorer) Score(s *student.Student, j *job.Job) MatchScore {
	total := 0.0
	for _, r := range sc.Breakdown(s, j) {
		total += r.Score
	}
	return clampScore(total)
}

// Breakdown возвращает вклад каждого фактора.
func (sc *Scorer) Breakdown(s *student.Student, j *job.Job) []MatchReason {
	w := sc.weights
	return []MatchReason{
		sc.academic(s, w.Academic),
		sc.certificates(s, j, w.Certificates),
		sc.experience(s, j, w.Experience),
		sc.relevance(s, j, w.Relevance),
	}
}

// Академический компонент бинарный: оценки в транскриптах не учитываются.
func (sc *Scorer) academic(s *student.Student, weight float64) MatchReason {
	r := MatchReason{Factor: FactorAcademic, Weight: weight, Description: "no completed study on record"}
	if s.HasCompletedStudy() {
		r.Score = weight
		r.Description = "completed study on record"
	}
	return r
}

func (sc *Scorer) certificates(s *student.Student, j *job.Job, weight float64) MatchReason {
	need := j.Requirements.MinCertificatesValue()
	if need <= 0 {
		return MatchReason{Factor: FactorCertificates, Weight: weight, Score: weight, Description: "no certificate requirement"}
	}
	have := s.CertificateCount()
	return MatchReason{
		Factor:      FactorCertificates,
		Weight:      weight,
		Score:       weight * ratio(have, need),
		Description: fmt.Sprintf("%d of %d required certificates", have, need),
	}
}

func (sc *Scorer) experience(s *student.Student, j *job.Job, weight float64) MatchReason {
	need := j.Requirements.MinExperienceValue()
	if need <= 0 {
		return MatchReason{Factor: FactorExperience, Weight: weight, Score: weight, Description: "no experience requirement"}
	}
	have := s.TotalExperienceMonths()
	return MatchReason{
		Factor:      FactorExperience,
		Weight:      weight,
		Score:       weight * ratio(have, need),
		Description: fmt.Sprintf("%d of %d required months", have, need),
	}
}

func (sc *Scorer) relevance(s *student.Student, j *job.Job, weight float64) MatchReason {
	wanted := normalize(j.Qualifications)
	if len(wanted) == 0 {
		return MatchReason{Factor: FactorRelevance, Weight: weight, Score: weight, Description: "no qualification keywords"}
	}
	have := normalize(s.Qualifications)
	matched := 0
	for _, w := range wanted {
		if matchesAny(w, have) {
			matched++
		}
	}
	return MatchReason{
		Factor:      FactorRelevance,
		Weight:      weight,
		Score:       weight * float64(matched) / float64(len(wanted)),
		Description: fmt.Sprintf("%d of %d qualification keywords matched", matched, len(wanted)),
	}
}

// ratio = min(have/need, 1).
func ratio(have, need int) float64 {
	if need < 1 {
		need = 1
	}
	if have < 0 {
		have = 0
	}
	return math.Min(float64(have)/float64(need), 1)
}

// Score считает оценку с весами по умолчанию.
func Score(s *student.Student, j *job.Job) MatchScore {
	return DefaultScorer().Score(s, j)
}
