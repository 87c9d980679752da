// Package matching решает, какие студенты подходят под вакансию и в каком
// порядке их показывать.
//
// Два чистых компонента:
//
//   - Evaluator: упорядоченный конвейер независимых проверок (все должны пройти)
//   - Scorer: сумма четырёх взвешенных компонентов, результат в [0, 100]
//
// Пакет не ходит в хранилище и не имеет состояния; одинаковые входные
// данные всегда дают одинаковый результат.
package matching

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// MatchScore представляет оценку совместимости (0-100).
type MatchScore float64

// IsValid проверяет корректность оценки.
func (m MatchScore) IsValid() bool {
	return !math.IsNaN(float64(m)) && m >= 0 && m <= 100
}

// Float64 возвращает значение.
func (m MatchScore) Float64() float64 {
	return float64(m)
}

// Quality возвращает качественную оценку совместимости.
func (m MatchScore) Quality() MatchQuality {
	switch {
	case m >= 80:
		return MatchQualityExcellent
	case m >= 60:
		return MatchQualityGood
	case m >= 40:
		return MatchQualityFair
	case m >= 20:
		return MatchQualityPoor
	default:
		return MatchQualityNone
	}
}

func clampScore(v float64) MatchScore {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return MatchScore(v)
	}
}

// MatchQuality определяет качество подбора.
type MatchQuality string

const (
	// MatchQualityExcellent - отличная совместимость (80-100).
	MatchQualityExcellent MatchQuality = "excellent"

	// MatchQualityGood - хорошая совместимость (60-79).
	MatchQualityGood MatchQuality = "good"

	// MatchQualityFair - удовлетворительная совместимость (40-59).
	MatchQualityFair MatchQuality = "fair"

	// MatchQualityPoor - низкая совместимость (20-39).
	MatchQualityPoor MatchQuality = "poor"

	// MatchQualityNone - нет совместимости (0-19).
	MatchQualityNone MatchQuality = "none"
)

// MatchReason - вклад одного фактора в итоговую оценку.
type MatchReason struct {
	// Factor - название фактора.
	Factor string `json:"factor"`

	// Weight - максимальный вклад фактора.
	Weight float64 `json:"weight"`

	// Score - фактический вклад (0..Weight).
	Score float64 `json:"score"`

	// Description - описание для пользователя.
	Description string `json:"description"`
}

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHTS
// ══════════════════════════════════════════════════════════════════════════════

// Факторы оценки.
const (
	FactorAcademic     = "academic"
	FactorCertificates = "certificates"
	FactorExperience   = "experience"
	FactorRelevance    = "relevance"
)

// ErrInvalidWeights - веса отрицательные или не дают в сумме 100.
var ErrInvalidWeights = errors.New("match weights must be non-negative and sum to 100")

// MatchWeights веса факторов для расчёта оценки совместимости.
type MatchWeights struct {
	// Academic - за наличие транскрипта (бинарно).
	Academic float64

	// Certificates - за количество сертификатов относительно требования.
	Certificates float64

	// Experience - за стаж относительно требования.
	Experience float64

	// Relevance - за долю совпавших ключевых квалификаций вакансии.
	Relevance float64
}

// DefaultMatchWeights возвращает веса по умолчанию: 40/20/20/20.
func DefaultMatchWeights() MatchWeights {
	return MatchWeights{
		Academic:     40,
		Certificates: 20,
		Experience:   20,
		Relevance:    20,
	}
}

// Validate проверяет веса.
func (w MatchWeights) Validate() error {
	if w.Academic < 0 || w.Certificates < 0 || w.Experience < 0 || w.Relevance < 0 {
		return ErrInvalidWeights
	}
	if sum := w.Academic + w.Certificates + w.Experience + w.Relevance; math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("%w: got %g", ErrInvalidWeights, sum)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUALIFICATION MATCHING
// ══════════════════════════════════════════════════════════════════════════════

// normalize приводит ключевые слова к нижнему регистру и убирает пустые.
// Пустая строка была бы подстрокой чего угодно.
func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// keywordsMatch - двусторонняя проверка вхождения подстроки.
// "bsc computer science" совпадает с "computer science" и наоборот.
func keywordsMatch(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// matchesAny проверяет, совпадает ли ключевое слово вакансии хотя бы
// с одной квалификацией студента. Оба аргумента уже нормализованы.
func matchesAny(jobKeyword string, studentQuals []string) bool {
	for _, q := range studentQuals {
		if keywordsMatch(q, jobKeyword) {
			return true
		}
	}
	return false
}
