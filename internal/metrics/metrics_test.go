package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/authsim/internal/models"
)

func testRun(t *testing.T) *models.Run {
	t.Helper()
	pool, err := models.NewIdentityPool(map[string][]string{
		"admin": {"10.0.0.1"},
		"dba":   {"10.0.0.2"},
	})
	require.NoError(t, err)

	at := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Run{
		Pool: pool,
		Result: &models.Result{
			Logs: []models.LogRecord{
				{Time: at, Username: "admin", Success: true},
				{Time: at, Username: "dba", FailureReason: models.ReasonWrongPassword},
				{Time: at, Username: "dba", FailureReason: models.ReasonWrongPassword},
				{Time: at, Username: "db", FailureReason: models.ReasonWrongUsername},
			},
			Attacks: []models.AttackRecord{
				{Start: at, End: at.Add(3 * time.Second)},
				{Start: at, End: at.Add(40 * time.Second)},
			},
			Hours: 25,
		},
	}
}

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(testRun(t))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogRecords.WithLabelValues("success", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LogRecords.WithLabelValues("failure", "WrongPassword")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogRecords.WithLabelValues("failure", "WrongUsername")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Attacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Identities))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.SimulatedHours))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AttackDuration))
}

func TestObserveSink(t *testing.T) {
	m := New()
	m.ObserveSink("redis", 20*time.Millisecond, nil)
	m.ObserveSink("nats", time.Second, errors.New("no servers"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("nats")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.SinkDuration))
}

func TestRegistryIsolated(t *testing.T) {
	first, second := New(), New()
	first.Observe(testRun(t))

	assert.Equal(t, 2.0, testutil.ToFloat64(first.Attacks))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.Attacks))
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.Observe(testRun(t))

	path := filepath.Join(t.TempDir(), "authsim.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `authsim_log_records_total{outcome="failure",reason="WrongPassword"} 2`))
	assert.Contains(t, text, "authsim_simulated_hours 25")

	err = m.WriteFile(filepath.Join(t.TempDir(), "missing", "dir", "authsim.prom"))
	assert.ErrorIs(t, err, models.ErrIO)
}
