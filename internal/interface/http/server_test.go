package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerhub/careerhub/internal/application/command"
	"github.com/careerhub/careerhub/internal/application/query"
	"github.com/careerhub/careerhub/internal/domain/admission"
	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/internal/domain/notification"
	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/domain/student"
	"github.com/careerhub/careerhub/internal/infrastructure/messaging"
	"github.com/careerhub/careerhub/internal/interface/http/handlers"
	"github.com/careerhub/careerhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*job.Job
}

func (m *memJobs) Create(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return shared.NewDomainError("job", "Create", shared.ErrAlreadyExists, "job already exists")
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, shared.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) UpdateMatches(_ context.Context, id string, update job.MatchUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return shared.ErrJobNotFound
	}
	j.QualifiedCandidates = update.QualifiedCandidates
	j.QualifiedStudents = update.QualifiedStudents
	return nil
}

type staticCandidates []*student.Student

func (s staticCandidates) Candidates(context.Context, []string) ([]*student.Student, error) {
	return s, nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []*notification.Notification
}

func (m *memNotifications) Create(_ context.Context, n *notification.Notification) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.UserID == n.UserID && it.JobID == n.JobID && it.Type == n.Type {
			return "", shared.ErrAlreadyNotified
		}
	}
	cp := *n
	m.items = append(m.items, &cp)
	return n.ID, nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string, limit int) ([]*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			out = append(out, m.items[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			n.MarkRead()
			return nil
		}
	}
	return shared.ErrNotificationNotFound
}

// memAdmissions runs every unit of work under one lock against plain maps.
// Tests here never fail mid-transition, so there is no rollback.
type memAdmissions struct {
	mu      sync.Mutex
	apps    map[string]*admission.Application
	courses map[string]*admission.Course
}

func (m *memAdmissions) Do(ctx context.Context, fn func(context.Context, admission.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m)
}

func (m *memAdmissions) GetApplication(_ context.Context, id string) (*admission.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, shared.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAdmissions) ListAdmittedApplications(_ context.Context, institutionID, studentID, excludeID string) ([]*admission.Application, error) {
	var out []*admission.Application
	for _, a := range m.apps {
		if a.ID != excludeID && a.InstitutionID == institutionID && a.StudentID == studentID && a.Status.IsAdmitted() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAdmissions) GetCourse(_ context.Context, id string) (*admission.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memAdmissions) UpdateCourseSeats(_ context.Context, id string, delta int) (*admission.Course, error) {
	c, ok := m.courses[id]
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
	cp := *c
	return &cp, nil
}

func (m *memAdmissions) UpdateApplicationStatus(_ context.Context, app *admission.Application) error {
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HARNESS
// ══════════════════════════════════════════════════════════════════════════════

type testEnv struct {
	server        *Server
	jobs          *memJobs
	notifications *memNotifications
	admissions    *memAdmissions
}

func qualifiedStudent(id string) *student.Student {
	return &student.Student{
		ID:             id,
		Qualifications: []string{"Go", "PostgreSQL"},
		Certificates:   []student.Certificate{{Name: "CKA"}, {Name: "AWS"}},
		WorkExperience: []student.WorkExperience{{DurationMonths: 18}},
		Transcripts:    []student.Transcript{{Program: "CS"}},
	}
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	env := &testEnv{
		jobs:          &memJobs{jobs: make(map[string]*job.Job)},
		notifications: &memNotifications{},
		admissions: &memAdmissions{
			apps:    make(map[string]*admission.Application),
			courses: make(map[string]*admission.Course),
		},
	}

	unqualified := &student.Student{ID: "s-2", Qualifications: []string{"Go"}}
	candidates := staticCandidates{qualifiedStudent("s-1"), unqualified}

	log := logger.Nop()
	deps := Dependencies{
		MatchStudentsToJob: command.NewMatchStudentsToJobHandler(command.MatchStudentsToJobDeps{
			Jobs:          env.jobs,
			Candidates:    candidates,
			Notifications: env.notifications,
			Logger:        log,
		}),
		ManageApplication: command.NewManageApplicationHandler(env.admissions, nil, log),
		GetJobMatches:     query.NewGetJobMatchesHandler(env.jobs, nil, log),
		Jobs:              env.jobs,
		Notifications:     env.notifications,
		Logger:            log,
		NewID:             func() string { return "job-generated" },
	}

	env.server = NewServer(cfg, deps)
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (e *testEnv) seedAdmission(seats int) {
	e.admissions.courses["course-1"] = &admission.Course{
		ID: "course-1", InstitutionID: "inst-1", Name: "CS", TotalSeats: seats, AvailableSeats: seats,
	}
	e.admissions.apps["app-1"] = &admission.Application{
		ID: "app-1", StudentID: "s-1", CourseID: "course-1", InstitutionID: "inst-1", Status: admission.StatusPending,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// JOBS
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateJob_StoresJobAndRunsMatching(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	status, body := env.do(t, fiber.MethodPost, "/api/v1/jobs", fiber.Map{
		"company_id":     "acme",
		"title":          "Backend Engineer",
		"requirements":   fiber.Map{"min_certificates": 2, "min_experience": 12},
		"qualifications": []string{"go"},
	}, nil)

	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, body.Success)

	var resp struct {
		Job   job.Job              `json:"job"`
		Match *matchResultResponse `json:"match"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &resp))

	assert.Equal(t, "job-generated", resp.Job.ID)
	require.NotNil(t, resp.Match)
	assert.Equal(t, 2, resp.Match.ScannedStudents)
	assert.Equal(t, 1, resp.Match.QualifiedCandidates)
	require.Len(t, resp.Match.QualifiedStudents, 1)
	assert.Equal(t, "s-1", resp.Match.QualifiedStudents[0].StudentID)
	assert.Equal(t, 1, resp.Job.QualifiedCandidates)

	stored, err := env.jobs.GetByID(context.Background(), "job-generated")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.QualifiedCandidates)

	notes, _ := env.notifications.ListByUser(context.Background(), "s-1", 0)
	assert.Len(t, notes, 1)
}

func TestCreateJob_ValidationErrorIsBadRequest(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	status, body := env.do(t, fiber.MethodPost, "/api/v1/jobs", fiber.Map{
		"title": "No company",
	}, nil)

	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "invalid_request", body.Error.Code)
}

func TestCreateJob_DuplicateIDIsConflict(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	payload := fiber.Map{"id": "job-1", "company_id": "acme", "title": "Backend"}

	status, _ := env.do(t, fiber.MethodPost, "/api/v1/jobs", payload, nil)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/jobs", payload, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "conflict", body.Error.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	status, body := env.do(t, fiber.MethodGet, "/api/v1/jobs/missing", nil, nil)

	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "not_found", body.Error.Code)
	assert.Equal(t, "job not found", body.Error.Message)
}

func TestGetJobMatches_ReturnsRankedList(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	status, _ := env.do(t, fiber.MethodPost, "/api/v1/jobs", fiber.Map{
		"id": "job-1", "company_id": "acme", "qualifications": []string{"go"},
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/jobs/job-1/matches?limit=5", nil, nil)
	require.Equal(t, fiber.StatusOK, status)

	var result query.GetJobMatchesResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, "job-1", result.JobID)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 1, result.Matches[0].Position)
	assert.Equal(t, "s-1", result.Matches[0].StudentID)
}

func TestGetJobMatches_RejectsUnknownQuality(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	status, body := env.do(t, fiber.MethodGet, "/api/v1/jobs/job-1/matches?min_quality=stellar", nil, nil)

	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, body.Error)
}

func TestMatchJob_RerunNotifiesEachStudentOnce(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	status, _ := env.do(t, fiber.MethodPost, "/api/v1/jobs", fiber.Map{
		"id": "job-1", "company_id": "acme", "qualifications": []string{"go"},
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/jobs/job-1/match", nil, nil)
	require.Equal(t, fiber.StatusOK, status)

	var resp matchResultResponse
	require.NoError(t, json.Unmarshal(body.Data, &resp))
	assert.Equal(t, 1, resp.QualifiedCandidates)
	assert.Equal(t, 0, resp.NotificationsSent)
	assert.Equal(t, 1, resp.AlreadyNotified)

	notes, _ := env.notifications.ListByUser(context.Background(), "s-1", 0)
	assert.Len(t, notes, 1)
}

func TestMatchJob_RateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchRunsPerMinute = 1
	env := newTestEnv(t, cfg)
	_ = env.jobs.Create(context.Background(), &job.Job{ID: "job-1", CompanyID: "acme"})

	status, _ := env.do(t, fiber.MethodPost, "/api/v1/jobs/job-1/match", nil, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/jobs/job-1/match", nil, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	require.NotNil(t, body.Error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

func TestUpdateApplicationStatus_AdmitTakesSeat(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.seedAdmission(2)

	status, body := env.do(t, fiber.MethodPatch, "/api/v1/applications/app-1/status",
		fiber.Map{"status": "admitted", "notes": "strong profile"},
		map[string]string{handlers.InstitutionHeader: "inst-1"})

	require.Equal(t, fiber.StatusOK, status)
	var resp updateStatusResponse
	require.NoError(t, json.Unmarshal(body.Data, &resp))
	assert.Equal(t, "pending", resp.PreviousStatus)
	assert.Equal(t, "admitted", resp.Status)
	assert.Equal(t, -1, resp.SeatDelta)
	assert.Equal(t, 1, resp.AvailableSeats)
	assert.Equal(t, 1, env.admissions.courses["course-1"].AvailableSeats)
}

func TestUpdateApplicationStatus_MissingInstitutionHeader(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.seedAdmission(1)

	status, body := env.do(t, fiber.MethodPatch, "/api/v1/applications/app-1/status",
		fiber.Map{"status": "admitted"}, nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, admission.StatusPending, env.admissions.apps["app-1"].Status)
}

func TestUpdateApplicationStatus_Errors(t *testing.T) {
	tests := []struct {
		name        string
		seats       int
		institution string
		status      string
		wantStatus  int
		wantCode    string
	}{
		{"foreign institution", 1, "inst-2", "admitted", fiber.StatusForbidden, "forbidden"},
		{"no seats", 1, "inst-1", "admitted", fiber.StatusConflict, "no_capacity"},
		{"unknown status", 1, "inst-1", "waitlisted", fiber.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, DefaultConfig())
			env.seedAdmission(tt.seats)
			if tt.wantCode == "no_capacity" {
				env.admissions.courses["course-1"].AvailableSeats = 0
			}

			status, body := env.do(t, fiber.MethodPatch, "/api/v1/applications/app-1/status",
				fiber.Map{"status": tt.status},
				map[string]string{handlers.InstitutionHeader: tt.institution})

			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, admission.StatusPending, env.admissions.apps["app-1"].Status)
		})
	}
}

func TestUpdateApplicationStatus_UnknownApplication(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	status, body := env.do(t, fiber.MethodPatch, "/api/v1/applications/nope/status",
		fiber.Map{"status": "rejected"},
		map[string]string{handlers.InstitutionHeader: "inst-1"})

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body.Error.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

func TestNotifications_ListAndMarkRead(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	status, _ := env.do(t, fiber.MethodPost, "/api/v1/jobs", fiber.Map{
		"id": "job-1", "company_id": "acme", "title": "Backend",
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/students/s-1/notifications", nil, nil)
	require.Equal(t, fiber.StatusOK, status)

	var items []notification.Notification
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "job-1", items[0].JobID)
	assert.False(t, items[0].IsRead)

	status, _ = env.do(t, fiber.MethodPost, "/api/v1/notifications/"+items[0].ID+"/read", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = env.do(t, fiber.MethodPost, "/api/v1/notifications/unknown/read", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body.Error.Code)
}

func TestListNotifications_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	status, body := env.do(t, fiber.MethodGet, "/api/v1/students/nobody/notifications", nil, nil)

	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body.Data))
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func TestErrorStatus(t *testing.T) {
	transient := shared.WrapError("store", "Query", shared.ErrTransientStore, "connection refused", errors.New("dial"))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrApplicationNotFound, 404, "not_found"},
		{"wrapped not found", errors.Join(errors.New("ctx"), shared.ErrCourseNotFound), 404, "not_found"},
		{"owner", shared.ErrNotApplicationOwner, 403, "forbidden"},
		{"duplicate admission", shared.ErrAlreadyAdmitted, 409, "conflict"},
		{"no seats", shared.ErrNoSeatsAvailable, 409, "no_capacity"},
		{"seat range", shared.ErrSeatRangeViolation, 409, "seat_range_violation"},
		{"transient", transient, 503, "store_unavailable"},
		{"validation", shared.ErrInvalidInput, 400, "invalid_request"},
		{"fiber", fiber.NewError(fiber.StatusTooManyRequests, "slow down"), 429, "http_error"},
		{"unknown", errors.New("boom"), 500, "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Production = true
	env := newTestEnv(t, cfg)
	env.server.App().Get("/boom", func(*fiber.Ctx) error { return errors.New("pq: secret detail") })

	status, body := env.do(t, fiber.MethodGet, "/boom", nil, nil)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "An unexpected error occurred", body.Error.Message)
	assert.Empty(t, body.Error.Details)
}

func TestHealth_ReportsFailingRequiredCheck(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("postgres", func(context.Context) error { return errors.New("down") })
	env.server.deps.HealthChecker = checker

	status, body := env.do(t, fiber.MethodGet, "/health", nil, nil)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	var hs handlers.HealthStatus
	require.NoError(t, json.Unmarshal(body.Data, &hs))
	assert.False(t, hs.Healthy)

	names := make([]string, 0, len(hs.Checks))
	for name := range hs.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"postgres"}, names)
}

func TestHealth_ReportsEventBusCounters(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.Publish(shared.NewJobMatchedEvent("j1", "acme", 0, 0, 0, 0)))

	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("postgres", func(context.Context) error { return nil })
	checker.AddStats("event_bus", func() interface{} { return bus.Metrics().Snapshot() })
	env.server.deps.HealthChecker = checker

	status, body := env.do(t, fiber.MethodGet, "/health", nil, nil)

	assert.Equal(t, fiber.StatusOK, status)
	var hs struct {
		Healthy bool `json:"healthy"`
		Stats   struct {
			EventBus messaging.EventBusMetricsSnapshot `json:"event_bus"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &hs))
	assert.True(t, hs.Healthy)
	assert.Equal(t, int64(1), hs.Stats.EventBus.TotalPublished)
	assert.Equal(t, int64(1), hs.Stats.EventBus.PublishedByType[shared.EventJobMatched])
	assert.Equal(t, int64(1), hs.Stats.EventBus.HandlerFailures)
}

func TestServer_UptimeZeroWhenStopped(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	assert.False(t, env.server.IsRunning())
	assert.Equal(t, time.Duration(0), env.server.Uptime())
}
