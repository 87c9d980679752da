package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
)

type matchFixture struct {
	jobs          *fakeJobs
	students      *fakeStudents
	notifications *fakeNotifications
	cache         *fakeCache
	publisher     *recordingPublisher
	handler       *MatchStudentsToJobHandler
}

func newMatchFixture(j *job.Job, students ...*student.Student) *matchFixture {
	f := &matchFixture{
		jobs:          newFakeJobs(j),
		students:      &fakeStudents{students: students},
		notifications: &fakeNotifications{failFor: map[string]bool{}},
		cache:         &fakeCache{},
		publisher:     &recordingPublisher{},
	}
	f.handler = NewMatchStudentsToJobHandler(MatchStudentsToJobDeps{
		Jobs:          f.jobs,
		Candidates:    student.FullScan(f.students),
		Notifications: f.notifications,
		Publisher:     f.publisher,
		Cache:         f.cache,
	})
	return f
}

func profile(id string, certs, months int, quals ...string) *student.Student {
	s := &student.Student{ID: id, Qualifications: quals, Transcripts: []student.Transcript{{Program: "BSc"}}}
	for i := 0; i < certs; i++ {
		s.Certificates = append(s.Certificates, student.Certificate{Name: "cert"})
	}
	if months > 0 {
		s.WorkExperience = []student.WorkExperience{{DurationMonths: months}}
	}
	return s
}

func backendJob() *job.Job {
	return &job.Job{
		ID:        "j1",
		CompanyID: "acme",
		Title:     "Backend Engineer",
		Requirements: job.Requirements{
			MinCertificates: job.Int(2),
			MinExperience:   job.Int(12),
		},
		Qualifications: []string{"Computer Science", "Go"},
	}
}

func TestMatchStudentsToJob_RanksQualifiedStudents(t *testing.T) {
	f := newMatchFixture(backendJob(),
		profile("partial", 2, 12, "BSc Computer Science"),
		&student.Student{ID: "no-transcript", Qualifications: []string{"Go"}},
		profile("full", 3, 24, "Computer Science", "golang"),
		profile("no-certs", 0, 24, "Go"),
		profile("also-partial", 2, 36, "go developer"),
		profile("irrelevant", 5, 60, "Biology"),
	)

	res, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.NoError(t, err)

	assert.Equal(t, 6, res.ScannedStudents)
	assert.Equal(t, 3, res.QualifiedCandidates)
	require.Len(t, res.Ranked, 3)
	assert.Equal(t, job.QualifiedStudent{StudentID: "full", MatchScore: 100}, res.Ranked[0])
	// Ties keep scan order.
	assert.Equal(t, "partial", res.Ranked[1].StudentID)
	assert.Equal(t, "also-partial", res.Ranked[2].StudentID)
	assert.Equal(t, 90.0, res.Ranked[1].MatchScore)

	assert.Equal(t, 1, res.Rejections["academic_completion"])
	assert.Equal(t, 1, res.Rejections["certificate_sufficiency"])
	assert.Equal(t, 1, res.Rejections["qualification_relevance"])

	stored, err := f.jobs.GetByID(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, stored.QualifiedStudents.IsRanked())
	assert.Equal(t, len(stored.QualifiedStudents), stored.QualifiedCandidates)
	assert.Equal(t, res.Ranked, stored.QualifiedStudents)

	assert.ElementsMatch(t, []string{"partial", "full", "also-partial"}, f.notifications.recipients())
	assert.Equal(t, res.Ranked, f.cache.lists["j1"])

	matched := f.publisher.ofType(shared.EventJobMatched)
	require.Len(t, matched, 1)
	assert.Equal(t, 3, matched[0].Payload()["qualified_candidates"])
	assert.Len(t, f.publisher.ofType(shared.EventNotificationCreated), 3)
}

func TestMatchStudentsToJob_ReplacesPreviousList(t *testing.T) {
	j := backendJob()
	j.QualifiedStudents = job.RankedList{{StudentID: "stale", MatchScore: 99}}
	j.QualifiedCandidates = 1
	f := newMatchFixture(j, profile("bio", 5, 60, "Biology"))

	res, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.QualifiedCandidates)

	stored, _ := f.jobs.GetByID(context.Background(), "j1")
	assert.Empty(t, stored.QualifiedStudents)
	assert.Equal(t, 0, stored.QualifiedCandidates)
}

func TestMatchStudentsToJob_RerunDoesNotNotifyAgain(t *testing.T) {
	f := newMatchFixture(&job.Job{ID: "j1", CompanyID: "acme"}, profile("s1", 0, 0), profile("s2", 0, 0))
	ctx := context.Background()

	first, err := f.handler.Handle(ctx, MatchStudentsToJobCommand{JobID: "j1"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.NotificationsSent)

	f.students.students = append(f.students.students, profile("s3", 0, 0))
	for i := 0; i < 2; i++ {
		res, err := f.handler.Handle(ctx, MatchStudentsToJobCommand{JobID: "j1"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.QualifiedCandidates)
		assert.Zero(t, res.NotificationsFailed)
	}

	assert.Equal(t, []string{"s1", "s2", "s3"}, f.notifications.recipients())
	assert.Len(t, f.publisher.ofType(shared.EventNotificationCreated), 3)

	last := f.publisher.ofType(shared.EventJobMatched)
	require.Len(t, last, 3)
	assert.Equal(t, 0, last[2].Payload()["notifications_sent"])

	stored, _ := f.jobs.GetByID(ctx, "j1")
	assert.Equal(t, 3, stored.QualifiedCandidates)
}

func TestMatchStudentsToJob_ScanFailurePersistsNothing(t *testing.T) {
	f := newMatchFixture(backendJob())
	f.students.err = errStoreDown

	_, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.Error(t, err)
	assert.True(t, shared.IsTransient(err))

	assert.Equal(t, 0, f.jobs.updates)
	assert.Empty(t, f.notifications.recipients())
	assert.Empty(t, f.publisher.events)
}

func TestMatchStudentsToJob_NotificationFailureDoesNotStopLoop(t *testing.T) {
	f := newMatchFixture(&job.Job{ID: "j1", CompanyID: "acme"},
		profile("a", 0, 0),
		profile("b", 0, 0),
		profile("c", 0, 0),
	)
	f.notifications.failFor["b"] = true

	res, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.QualifiedCandidates)
	assert.Equal(t, 2, res.NotificationsSent)
	assert.Equal(t, 1, res.NotificationsFailed)
	assert.Equal(t, []string{"a", "c"}, f.notifications.recipients())
	assert.Equal(t, 1, f.jobs.updates)
}

func TestMatchStudentsToJob_PersistFailureKeepsSentNotifications(t *testing.T) {
	f := newMatchFixture(&job.Job{ID: "j1", CompanyID: "acme"}, profile("a", 0, 0))
	f.jobs.updateErr = errStoreDown

	_, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.Error(t, err)

	assert.Equal(t, []string{"a"}, f.notifications.recipients())
	assert.Empty(t, f.cache.lists)
	assert.Empty(t, f.publisher.ofType(shared.EventJobMatched))
}

func TestMatchStudentsToJob_CacheFailureIsNotFatal(t *testing.T) {
	f := newMatchFixture(&job.Job{ID: "j1", CompanyID: "acme"}, profile("a", 0, 0))
	f.cache.err = errors.New("redis: connection pool timeout")

	res, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.QualifiedCandidates)
}

func TestMatchStudentsToJob_GateSkipsNotificationsButKeepsRanking(t *testing.T) {
	f := newMatchFixture(&job.Job{ID: "j1", CompanyID: "acme"}, profile("a", 0, 0), profile("b", 0, 0))
	f.handler.gate = func(studentID string) bool { return studentID == "b" }

	res, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "j1"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.QualifiedCandidates)
	assert.Equal(t, []string{"b"}, f.notifications.recipients())
}

func TestMatchStudentsToJob_UnknownJob(t *testing.T) {
	f := newMatchFixture(&job.Job{ID: "j1"})

	_, err := f.handler.Handle(context.Background(), MatchStudentsToJobCommand{JobID: "nope"})
	assert.True(t, shared.IsNotFound(err))

	_, err = f.handler.Handle(context.Background(), MatchStudentsToJobCommand{})
	assert.True(t, shared.IsValidation(err))
}
