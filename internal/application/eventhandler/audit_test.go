package eventhandler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerhub/careerhub/internal/domain/shared"
	"github.com/careerhub/careerhub/internal/infrastructure/messaging"
	"github.com/careerhub/careerhub/pkg/logger"
)

func newAuditLog(t *testing.T) (*AuditLog, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := logger.DefaultOptions()
	opts.Output = buf
	opts.Level = logger.LevelDebug
	return NewAuditLog(logger.New(opts)), buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	return out
}

func TestAuditLog_LogsEventsFromBus(t *testing.T) {
	audit, buf := newAuditLog(t)

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{})
	defer bus.Close()
	require.NoError(t, audit.Register(bus))

	require.NoError(t, bus.Publish(shared.NewJobMatchedEvent("job-1", "acme", 10, 3, 3, 92.5)))
	require.NoError(t, bus.Publish(shared.NewApplicationStatusChangedEvent("app-1", "inst-1", "s-1", "course-1", "pending", "admitted", 4)))
	bus.Drain()

	logged := entries(t, buf)
	require.Len(t, logged, 2)

	assert.Equal(t, "job matched", logged[0]["message"])
	assert.Equal(t, "job-1", logged[0]["job_id"])
	assert.Equal(t, float64(3), logged[0]["qualified_candidates"])

	assert.Equal(t, "application status changed", logged[1]["message"])
	assert.Equal(t, "app-1", logged[1]["application_id"])
	assert.Equal(t, "admitted", logged[1]["to"])
	assert.Equal(t, "audit", logged[1]["component"])
}

func TestAuditLog_WarnsWhenCourseFills(t *testing.T) {
	audit, buf := newAuditLog(t)

	err := audit.Handle(shared.NewApplicationStatusChangedEvent("app-1", "inst-1", "s-1", "course-1", "pending", "admitted", 0))
	require.NoError(t, err)

	logged := entries(t, buf)
	require.Len(t, logged, 1)
	assert.Equal(t, "WARN", logged[0]["level"])
	assert.Equal(t, "course is full", logged[0]["message"])
}

func TestSeatsLeft(t *testing.T) {
	assert.Equal(t, 2, seatsLeft(map[string]interface{}{"available_seats": 2}))
	assert.Equal(t, 0, seatsLeft(map[string]interface{}{"available_seats": float64(0)}))
	assert.Equal(t, -1, seatsLeft(map[string]interface{}{}))
}
