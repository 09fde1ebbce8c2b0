package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/authsim/internal/config"
	"github.com/telhawk-systems/authsim/internal/models"
	"github.com/telhawk-systems/authsim/internal/sink"
	"github.com/telhawk-systems/authsim/pkg/output"
)

// testEnv is a scratch directory holding word lists and a config file whose outputs
// all land inside the directory.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	first := filepath.Join(dir, "first.txt")
	last := filepath.Join(dir, "last.txt")
	require.NoError(t, os.WriteFile(first, []byte("# first names\nAlex\nJane\nJohn\n"), 0o644))
	require.NoError(t, os.WriteFile(last, []byte("Hanson\nSmith\n\nGreen\n"), 0o644))

	cfg := `simulation:
  days: 2
  seed: 21
  attack_prob: 0.3
identity:
  first_names: ` + first + `
  last_names: ` + last + `
  max_ips: 2
output:
  ip: ` + filepath.Join(dir, "out", "ips.json") + `
  log: ` + filepath.Join(dir, "out", "log.csv") + `
  hacklog: ` + filepath.Join(dir, "out", "attack.csv") + `
logging:
  level: error
` + extra

	path := filepath.Join(dir, "authsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &testEnv{dir: dir, config: path}
}

func (e *testEnv) path(parts ...string) string {
	return filepath.Join(append([]string{e.dir}, parts...)...)
}

// execute runs the command tree with args and returns what it printed.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	oldOut, oldErr, oldNoColor := output.Stdout, output.Stderr, color.NoColor
	output.Stdout, output.Stderr = out, errOut
	color.NoColor = true
	t.Cleanup(func() {
		output.Stdout, output.Stderr, color.NoColor = oldOut, oldErr, oldNoColor
	})

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()

	expected := []string{"generate", "pool", "validate", "config"}
	for _, name := range expected {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "command %s not registered", name)
	}
}

func TestGenerate_WritesFiles(t *testing.T) {
	env := newTestEnv(t, "")

	stdout, _, err := execute(t, "--config", env.config, "generate")
	require.NoError(t, err)

	for _, name := range []string{"ips.json", "log.csv", "attack.csv"} {
		assert.FileExists(t, env.path("out", name))
	}
	assert.Contains(t, stdout, "log records")

	logs, err := os.ReadFile(env.path("out", "log.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(logs)), "\n")
	assert.Equal(t, strings.Join(models.LogHeader, ","), lines[0])
	assert.Greater(t, len(lines), 1)

	raw, err := os.ReadFile(env.path("out", "ips.json"))
	require.NoError(t, err)
	var pool map[string][]string
	require.NoError(t, json.Unmarshal(raw, &pool))
	// 3 first names x 3 last names plus the default roles.
	assert.Len(t, pool, 12)
	assert.Contains(t, pool, "JaneSmith")
	assert.Contains(t, pool, "admin")
	for user, ips := range pool {
		assert.NotEmpty(t, ips, user)
		assert.LessOrEqual(t, len(ips), 2, user)
	}
}

func TestGenerate_FlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t, "")
	logPath := env.path("custom", "auth.csv")

	_, _, err := execute(t, "--config", env.config, "generate", "--log", logPath, "--ip", "", "--hacklog", "")
	require.NoError(t, err)

	assert.FileExists(t, logPath)
	assert.NoFileExists(t, env.path("out", "log.csv"))
	assert.NoFileExists(t, env.path("out", "ips.json"))
	assert.NoFileExists(t, env.path("out", "attack.csv"))
}

func TestGenerate_DryRun(t *testing.T) {
	env := newTestEnv(t, "")

	stdout, _, err := execute(t, "--config", env.config, "generate", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Dry run")
	assert.NoDirExists(t, env.path("out"))
}

func TestGenerate_JSONSummary(t *testing.T) {
	env := newTestEnv(t, "")

	stdout, _, err := execute(t, "--config", env.config, "generate", "--output", "json")
	require.NoError(t, err)

	var summary runSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, uint64(21), summary.Seed)
	assert.Equal(t, "2022-01-01 00:00:00", summary.Start)
	assert.Equal(t, 49, summary.Hours)
	assert.Equal(t, 12, summary.Identities)
	assert.False(t, summary.DryRun)
	assert.Len(t, summary.Files, 3)

	logs, err := os.ReadFile(env.path("out", "log.csv"))
	require.NoError(t, err)
	records := len(strings.Split(strings.TrimSpace(string(logs)), "\n")) - 1
	assert.Equal(t, records, summary.LogRecords)

	failed := 0
	for _, n := range summary.Failures {
		failed += n
	}
	assert.Equal(t, summary.LogRecords, summary.Successful+failed)
	assert.Contains(t, summary.Failures, "AccountLocked")
}

func TestGenerate_JSONSummaryDryRun(t *testing.T) {
	env := newTestEnv(t, "")

	stdout, _, err := execute(t, "--config", env.config, "generate", "--dry-run", "-o", "json")
	require.NoError(t, err)

	var summary runSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.True(t, summary.DryRun)
	assert.Empty(t, summary.Files)
	assert.NoDirExists(t, env.path("out"))
}

func TestGenerate_UnknownOutputFormat(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := execute(t, "--config", env.config, "generate", "--output", "xml")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGenerate_Deterministic(t *testing.T) {
	first := newTestEnv(t, "")
	second := newTestEnv(t, "")

	_, _, err := execute(t, "--config", first.config, "generate")
	require.NoError(t, err)
	_, _, err = execute(t, "--config", second.config, "generate")
	require.NoError(t, err)

	for _, name := range []string{"ips.json", "log.csv", "attack.csv"} {
		a, err := os.ReadFile(first.path("out", name))
		require.NoError(t, err)
		b, err := os.ReadFile(second.path("out", name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), name)
	}
}

func TestGenerate_InvalidStartDate(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := execute(t, "--config", env.config, "generate", "--start-date", "2022-13-01 00:00:00")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidDate)
	assert.NoDirExists(t, env.path("out"))
}

func TestGenerate_PoolIn(t *testing.T) {
	env := newTestEnv(t, "")
	poolPath := env.path("pool.yaml")
	require.NoError(t, os.WriteFile(poolPath, []byte("alice:\n  - 10.1.1.1\nbob:\n  - 10.1.1.2\n  - 10.1.1.3\n"), 0o644))

	_, _, err := execute(t, "--config", env.config, "generate", "--pool-in", poolPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(env.path("out", "ips.json"))
	require.NoError(t, err)
	var pool map[string][]string
	require.NoError(t, json.Unmarshal(raw, &pool))
	assert.Equal(t, map[string][]string{
		"alice": {"10.1.1.1"},
		"bob":   {"10.1.1.2", "10.1.1.3"},
	}, pool)
}

func TestGenerate_PoolInRejectsShortUsername(t *testing.T) {
	env := newTestEnv(t, "")
	poolPath := env.path("pool.json")
	require.NoError(t, os.WriteFile(poolPath, []byte(`{"alice":["10.1.1.1"],"b":["10.1.1.2"]}`), 0o644))

	_, _, err := execute(t, "--config", env.config, "generate", "--pool-in", poolPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.NoDirExists(t, env.path("out"))
}

func TestGenerate_GeneratedNamesFallback(t *testing.T) {
	t.Setenv("AUTHSIM_IDENTITY_GENERATED_NAMES", "4")
	env := newTestEnv(t, "")
	require.NoError(t, os.Remove(env.path("first.txt")))

	stdout, _, err := execute(t, "--config", env.config, "generate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "generating 4 names")
}

func TestGenerate_RedisSink(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	env := newTestEnv(t, `sinks:
  redis:
    enabled: true
    addr: `+mr.Addr()+`
`)
	metricsPath := env.path("out", "metrics.prom")

	_, _, err = execute(t, "--config", env.config, "generate", "--metrics-file", metricsPath)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logs, err := os.ReadFile(env.path("out", "log.csv"))
	require.NoError(t, err)
	records := len(strings.Split(strings.TrimSpace(string(logs)), "\n")) - 1

	n, err := client.XLen(context.Background(), sink.StreamLogs).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(records), n)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "authsim_log_records_total")
	assert.Contains(t, string(prom), `authsim_sink_write_duration_seconds_count{sink="redis"} 1`)
}

func TestGenerate_NoSinks(t *testing.T) {
	env := newTestEnv(t, `sinks:
  redis:
    enabled: true
    addr: 127.0.0.1:1
`)

	_, _, err := execute(t, "--config", env.config, "generate", "--no-sinks")
	require.NoError(t, err)
	assert.FileExists(t, env.path("out", "log.csv"))
}

func TestGenerate_SinkUnavailable(t *testing.T) {
	env := newTestEnv(t, `sinks:
  redis:
    enabled: true
    addr: 127.0.0.1:1
`)

	_, _, err := execute(t, "--config", env.config, "generate")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestPool_WritesYAML(t *testing.T) {
	env := newTestEnv(t, "")
	out := env.path("pool.yaml")

	stdout, _, err := execute(t, "--config", env.config, "pool", "--ip", out, "--max-ips", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote 12 identities")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "JohnGreen:")
	assert.Contains(t, string(raw), "master:")
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t, "")
		stdout, _, err := execute(t, "--config", env.config, "validate", "--show")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Config file: "+env.config)
		assert.Contains(t, stdout, "attack_prob: 0.3")
		assert.Contains(t, stdout, "Configuration is valid")
	})

	t.Run("invalid", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "authsim.yaml")
		require.NoError(t, os.WriteFile(path, []byte("simulation:\n  attack_prob: 2\nlockout:\n  policy: forever\n"), 0o644))

		_, stderr, err := execute(t, "--config", path, "validate")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Contains(t, stderr, "AttackProb")
		assert.Contains(t, stderr, "Policy")
	})
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authsim.yaml")

	stdout, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, _, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
}
