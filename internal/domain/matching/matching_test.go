package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/student"
)

func graduate(quals ...string) *student.Student {
	return &student.Student{
		ID:             "s1",
		Qualifications: quals,
		Transcripts:    []student.Transcript{{Program: "CS"}},
	}
}

func certs(n int) []student.Certificate {
	out := make([]student.Certificate, n)
	for i := range out {
		out[i] = student.Certificate{Name: "cert"}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// Evaluator
// ══════════════════════════════════════════════════════════════════════════════

func TestIsQualified_NoTranscriptsNeverQualifies(t *testing.T) {
	s := &student.Student{
		ID:             "s1",
		Qualifications: []string{"Computer Science"},
		Certificates:   certs(5),
		WorkExperience: []student.WorkExperience{{DurationMonths: 60}},
	}
	jobs := []*job.Job{
		{},
		{Qualifications: []string{"computer science"}},
		{Requirements: job.Requirements{MinCertificates: job.Int(1), MinExperience: job.Int(1)}},
	}

	for _, j := range jobs {
		ok, failed := NewEvaluator().Evaluate(s, j)
		assert.False(t, ok)
		assert.Equal(t, CheckAcademic, failed)
	}
}

func TestIsQualified_NoRequirementsAdmitsEveryGraduate(t *testing.T) {
	j := &job.Job{Requirements: job.Requirements{MinCertificates: job.Int(0), MinExperience: job.Int(0)}}

	assert.True(t, IsQualified(graduate(), j))
	assert.True(t, IsQualified(graduate("Underwater Basket Weaving"), j))
	assert.True(t, IsQualified(graduate(), &job.Job{}))
}

func TestIsQualified_CertificateRequirement(t *testing.T) {
	j := &job.Job{Requirements: job.Requirements{MinCertificates: job.Int(2)}}

	s := graduate()
	ok, failed := NewEvaluator().Evaluate(s, j)
	assert.False(t, ok)
	assert.Equal(t, CheckCertificates, failed)

	s.Certificates = certs(2)
	assert.True(t, IsQualified(s, j))
}

func TestIsQualified_ExperienceIsSummedAcrossPositions(t *testing.T) {
	j := &job.Job{Requirements: job.Requirements{MinExperience: job.Int(12)}}
	s := graduate()
	s.WorkExperience = []student.WorkExperience{{DurationMonths: 6}, {DurationMonths: 8}}

	assert.True(t, IsQualified(s, j))

	s.WorkExperience = s.WorkExperience[:1]
	ok, failed := NewEvaluator().Evaluate(s, j)
	assert.False(t, ok)
	assert.Equal(t, CheckExperience, failed)

	s.WorkExperience = nil
	assert.False(t, IsQualified(s, j))
}

func TestIsQualified_RelevanceIsBidirectionalAndCaseInsensitive(t *testing.T) {
	tests := []struct {
		name      string
		student   []string
		job       []string
		qualified bool
	}{
		{"student contains job", []string{"BSc Computer Science"}, []string{"computer science"}, true},
		{"job contains student", []string{"Go"}, []string{"GOLANG developer"}, true},
		{"one of many", []string{"Biology", "Data Analysis"}, []string{"statistics", "data analysis"}, true},
		{"no overlap", []string{"Biology"}, []string{"Accounting"}, false},
		{"student has none", nil, []string{"Accounting"}, false},
		{"blank keywords ignored", []string{"Biology"}, []string{"  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &job.Job{Qualifications: tt.job}
			assert.Equal(t, tt.qualified, IsQualified(graduate(tt.student...), j))
		})
	}
}

func TestEvaluator_WithExtraCheck(t *testing.T) {
	onlyEmail := Check{Name: "has_email", Pass: func(s *student.Student, _ *job.Job) bool { return s.Email != "" }}
	e := NewEvaluator().With(onlyEmail)

	ok, failed := e.Evaluate(graduate(), &job.Job{})
	assert.False(t, ok)
	assert.Equal(t, "has_email", failed)

	ok, _ = e.Evaluate(nil, &job.Job{})
	assert.False(t, ok)
}

// ══════════════════════════════════════════════════════════════════════════════
// Scorer
// ══════════════════════════════════════════════════════════════════════════════

func TestScore_FullMarksWithoutRequirements(t *testing.T) {
	assert.Equal(t, MatchScore(100), Score(graduate(), &job.Job{}))
	assert.Equal(t, MatchScore(60), Score(&student.Student{}, &job.Job{}))
}

func TestScore_ExperienceComponentCapsAtWeight(t *testing.T) {
	j := &job.Job{Requirements: job.Requirements{MinExperience: job.Int(12)}}
	s := graduate()
	s.WorkExperience = []student.WorkExperience{{DurationMonths: 6}, {DurationMonths: 8}}

	reasons := DefaultScorer().Breakdown(s, j)
	require.Len(t, reasons, 4)
	assert.Equal(t, FactorExperience, reasons[2].Factor)
	assert.Equal(t, 20.0, reasons[2].Score)

	s.WorkExperience = []student.WorkExperience{{DurationMonths: 6}}
	assert.Equal(t, 10.0, DefaultScorer().Breakdown(s, j)[2].Score)
}

func TestScore_PartialComponents(t *testing.T) {
	j := &job.Job{
		Requirements:   job.Requirements{MinCertificates: job.Int(4)},
		Qualifications: []string{"Go", "Kubernetes", "Postgres", "Rust"},
	}
	s := graduate("golang", "PostgreSQL administration")
	s.Certificates = certs(1)

	// 40 + 20*1/4 + 20 + 20*2/4
	assert.InDelta(t, 75.0, Score(s, j).Float64(), 1e-9)
}

// Blank job keywords are dropped before counting, so they don't lower the
// relevance share: 1 matched of 1 real keyword, not 1 of 3.
func TestScore_BlankJobKeywordsLeaveRelevanceDenominator(t *testing.T) {
	j := &job.Job{Qualifications: []string{"Go", "   ", ""}}

	reasons := DefaultScorer().Breakdown(graduate("golang"), j)
	require.Len(t, reasons, 4)
	assert.Equal(t, FactorRelevance, reasons[3].Factor)
	assert.Equal(t, 20.0, reasons[3].Score)
	assert.Equal(t, "1 of 1 qualification keywords matched", reasons[3].Description)

	onlyBlank := &job.Job{Qualifications: []string{" ", ""}}
	assert.Equal(t, MatchScore(100), Score(graduate("biology"), onlyBlank))
}

func TestScore_RangeAndDeterminism(t *testing.T) {
	students := []*student.Student{
		{},
		graduate(),
		{Transcripts: []student.Transcript{{}}, Certificates: certs(10), WorkExperience: []student.WorkExperience{{DurationMonths: 500}}},
		{Qualifications: []string{"x"}, WorkExperience: []student.WorkExperience{{DurationMonths: -7}}},
	}
	jobs := []*job.Job{
		{},
		{Requirements: job.Requirements{MinCertificates: job.Int(3), MinExperience: job.Int(24)}, Qualifications: []string{"x", "y"}},
		{Requirements: job.Requirements{MinCertificates: job.Int(-2)}},
	}

	for _, s := range students {
		for _, j := range jobs {
			first := Score(s, j)
			assert.True(t, first.IsValid(), "score %v out of range", first)
			assert.Equal(t, first, Score(s, j))
		}
	}
}

func TestNewScorer_CustomWeights(t *testing.T) {
	_, err := NewScorer(MatchWeights{Academic: 50, Certificates: 20, Experience: 20, Relevance: 20})
	assert.ErrorIs(t, err, ErrInvalidWeights)

	sc, err := NewScorer(MatchWeights{Academic: 70, Certificates: 10, Experience: 10, Relevance: 10})
	require.NoError(t, err)
	assert.Equal(t, MatchScore(30), sc.Score(&student.Student{}, &job.Job{}))
}

func TestMatchScore_Quality(t *testing.T) {
	assert.Equal(t, MatchQualityExcellent, MatchScore(80).Quality())
	assert.Equal(t, MatchQualityGood, MatchScore(79.9).Quality())
	assert.Equal(t, MatchQualityFair, MatchScore(40).Quality())
	assert.Equal(t, MatchQualityPoor, MatchScore(20).Quality())
	assert.Equal(t, MatchQualityNone, MatchScore(0).Quality())
}
