package command

import (
	"context"
	"errors"
	"sync"

	"github.com/careerhub/careerhub/internal/domain/admission"
	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/notification"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
)

var errStoreDown = shared.WrapError("store", "Query", shared.ErrTransientStore, "connection refused", errors.New("dial tcp: refused"))

// ══════════════════════════════════════════════════════════════════════════════
// admission: in-memory unit of work
// Do holds one lock, works on copies and swaps them in only on success.
// ══════════════════════════════════════════════════════════════════════════════

type memAdmissions struct {
	mu      sync.Mutex
	apps    map[string]admission.Application
	courses map[string]admission.Course

	failStatusUpdate error
	attempts         int
}

func newMemAdmissions() *memAdmissions {
	return &memAdmissions{
		apps:    make(map[string]admission.Application),
		courses: make(map[string]admission.Course),
	}
}

func (m *memAdmissions) addCourse(c admission.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
}

func (m *memAdmissions) addApplication(a admission.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[a.ID] = a
}

func (m *memAdmissions) course(id string) admission.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.courses[id]
}

func (m *memAdmissions) application(id string) admission.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[id]
}

// admittedPerPair counts admitted applications per institution:student.
func (m *memAdmissions) admittedPerPair() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, a := range m.apps {
		if a.Status.IsAdmitted() {
			out[a.InstitutionID+":"+a.StudentID]++
		}
	}
	return out
}

func (m *memAdmissions) Do(ctx context.Context, fn func(ctx context.Context, repo admission.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++

	tx := &memTx{
		apps:             make(map[string]admission.Application, len(m.apps)),
		courses:          make(map[string]admission.Course, len(m.courses)),
		failStatusUpdate: m.failStatusUpdate,
	}
	for k, v := range m.apps {
		tx.apps[k] = v
	}
	for k, v := range m.courses {
		tx.courses[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.apps = tx.apps
	m.courses = tx.courses
	return nil
}

type memTx struct {
	apps             map[string]admission.Application
	courses          map[string]admission.Course
	failStatusUpdate error
}

func (t *memTx) GetApplication(_ context.Context, id string) (*admission.Application, error) {
	a, ok := t.apps[id]
	if !ok {
		return nil, shared.ErrApplicationNotFound
	}
	return &a, nil
}

func (t *memTx) ListAdmittedApplications(_ context.Context, institutionID, studentID, excludeID string) ([]*admission.Application, error) {
	var out []*admission.Application
	for _, a := range t.apps {
		if a.ID == excludeID || a.InstitutionID != institutionID || a.StudentID != studentID {
			continue
		}
		if a.Status.IsAdmitted() {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (t *memTx) GetCourse(_ context.Context, id string) (*admission.Course, error) {
	c, ok := t.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return &c, nil
}

func (t *memTx) UpdateCourseSeats(_ context.Context, id string, delta int) (*admission.Course, error) {
	c, ok := t.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	if !c.CanApplyDelta(delta) {
		if delta < 0 {
			return nil, shared.ErrNoSeatsAvailable
		}
		return nil, shared.ErrSeatRangeViolation
	}
	c.AvailableSeats += delta
	t.courses[id] = c
	return &c, nil
}

func (t *memTx) UpdateApplicationStatus(_ context.Context, app *admission.Application) error {
	if t.failStatusUpdate != nil {
		return t.failStatusUpdate
	}
	if _, ok := t.apps[app.ID]; !ok {
		return shared.ErrApplicationNotFound
	}
	t.apps[app.ID] = *app
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// matching collaborators
// ══════════════════════════════════════════════════════════════════════════════

type fakeStudents struct {
	students []*student.Student
	err      error
}

func (f *fakeStudents) ListAll(context.Context) ([]*student.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.students, nil
}

func (f *fakeStudents) GetByID(_ context.Context, id string) (*student.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]*job.Job
	updates   int
	updateErr error
}

func newFakeJobs(jobs ...*job.Job) *fakeJobs {
	f := &fakeJobs{jobs: make(map[string]*job.Job)}
	for _, j := range jobs {
		f.jobs[j.ID] = j
	}
	return f
}

func (f *fakeJobs) Create(_ context.Context, j *job.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeJobs) GetByID(_ context.Context, id string) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, shared.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) UpdateMatches(_ context.Context, id string, u job.MatchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	j, ok := f.jobs[id]
	if !ok {
		return shared.ErrJobNotFound
	}
	f.updates++
	j.QualifiedCandidates = u.QualifiedCandidates
	j.QualifiedStudents = u.QualifiedStudents
	return nil
}

type fakeNotifications struct {
	mu      sync.Mutex
	created []*notification.Notification
	failFor map[string]bool
}

func (f *fakeNotifications) Create(_ context.Context, n *notification.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return "", errStoreDown
	}
	for _, c := range f.created {
		if c.UserID == n.UserID && c.JobID == n.JobID && c.Type == n.Type {
			return "", shared.ErrAlreadyNotified
		}
	}
	f.created = append(f.created, n)
	return n.ID, nil
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID string, _ int) ([]*notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notification.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(context.Context, string) error { return nil }

func (f *fakeNotifications) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.created))
	for i, n := range f.created {
		out[i] = n.UserID
	}
	return out
}

type fakeCache struct {
	lists map[string]job.RankedList
	err   error
}

func (f *fakeCache) GetMatches(_ context.Context, jobID string) (job.RankedList, error) {
	l, ok := f.lists[jobID]
	if !ok {
		return nil, job.ErrMatchCacheMiss
	}
	return l, nil
}

func (f *fakeCache) SetMatches(_ context.Context, jobID string, ranked job.RankedList) error {
	if f.err != nil {
		return f.err
	}
	if f.lists == nil {
		f.lists = make(map[string]job.RankedList)
	}
	f.lists[jobID] = ranked
	return nil
}

func (f *fakeCache) InvalidateMatches(_ context.Context, jobID string) error {
	delete(f.lists, jobID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
