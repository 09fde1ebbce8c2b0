package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/authsim/internal/identity"
	"github.com/telhawk-systems/authsim/internal/models"
)

var at = time.Date(2022, 1, 1, 9, 0, 5, 0, time.UTC)

func testRun(t *testing.T) *models.Run {
	t.Helper()
	pool, err := models.NewIdentityPool(map[string][]string{
		"admin":     {"10.0.0.1"},
		"JaneSmith": {"10.0.0.2", "10.0.0.3"},
	})
	require.NoError(t, err)

	return &models.Run{
		ID:   "run-1",
		Seed: 13,
		Pool: pool,
		Result: &models.Result{
			Logs: []models.LogRecord{
				{Time: at, SourceIP: "10.0.0.1", Username: "admin", Success: true},
				{Time: at.Add(time.Second), SourceIP: "1.2.3.4", Username: "JaneSmth", FailureReason: models.ReasonWrongUsername, Attack: true},
			},
			Attacks: []models.AttackRecord{
				{Start: at, End: at.Add(2 * time.Second), SourceIP: "1.2.3.4"},
			},
			Hours: 25,
		},
	}
}

func TestWriteLogsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLogsCSV(&buf, testRun(t).Result.Logs))

	want := "datetime,source_ip,username,success,failure_reason\n" +
		"2022-01-01 09:00:05,10.0.0.1,admin,true,\n" +
		"2022-01-01 09:00:06,1.2.3.4,JaneSmth,false,WrongUsername\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteAttacksCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAttacksCSV(&buf, testRun(t).Result.Attacks))

	want := "start,end,source_ip\n" +
		"2022-01-01 09:00:05,2022-01-01 09:00:07,1.2.3.4\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteLogsCSV_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLogsCSV(&buf, nil))
	assert.Equal(t, "datetime,source_ip,username,success,failure_reason\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_WriterError(t *testing.T) {
	err := WriteAttacksCSV(failingWriter{}, testRun(t).Result.Attacks)
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Pool:    filepath.Join(dir, "logs", "ips.json"),
		Logs:    filepath.Join(dir, "logs", "log.csv"),
		Attacks: filepath.Join(dir, "logs", "attack.csv"),
	}
	run := testRun(t)

	written, err := WriteFiles(paths, run)
	require.NoError(t, err)
	assert.Equal(t, []string{paths.Pool, paths.Logs, paths.Attacks}, written.Files)

	pool, err := identity.Load(paths.Pool)
	require.NoError(t, err)
	assert.Equal(t, run.Pool.Snapshot(), pool.Snapshot())

	data, err := os.ReadFile(paths.Attacks)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.2.3.4")

	// No staging files are left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestWriteFiles_SkipsEmptyPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	written, err := WriteFiles(Paths{Logs: path}, testRun(t))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, written.Files)
}

func TestWriteFiles_NilRun(t *testing.T) {
	_, err := WriteFiles(Paths{Logs: "x.csv"}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
