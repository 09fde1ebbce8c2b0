package sink

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/telhawk-systems/authsim/internal/models"
)

// setupTestDatabase starts a PostgreSQL container and returns its connection string.
func setupTestDatabase(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("authsim_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgres_Write(t *testing.T) {
	dsn := setupTestDatabase(t)
	ctx := context.Background()

	sink, err := NewPostgres(ctx, PostgresConfig{DSN: dsn, Migrate: true})
	require.NoError(t, err)
	defer sink.Close()

	run := testRun(t)
	require.NoError(t, sink.Write(ctx, run))

	// Migrating twice is a no-op.
	require.NoError(t, Migrate(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var logs, attacks, hours int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM auth_logs WHERE run_id = $1`, run.ID).Scan(&logs))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM attacks WHERE run_id = $1`, run.ID).Scan(&attacks))
	require.NoError(t, pool.QueryRow(ctx, `SELECT hours FROM runs WHERE id = $1`, run.ID).Scan(&hours))
	assert.Equal(t, 3, logs)
	assert.Equal(t, 1, attacks)
	assert.Equal(t, 25, hours)

	var reason *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT failure_reason FROM auth_logs WHERE run_id = $1 AND seq = 0`, run.ID).Scan(&reason))
	assert.Nil(t, reason)
	require.NoError(t, pool.QueryRow(ctx, `SELECT failure_reason FROM auth_logs WHERE run_id = $1 AND seq = 2`, run.ID).Scan(&reason))
	require.NotNil(t, reason)
	assert.Equal(t, "WrongPassword", *reason)

	// The same run cannot be stored twice.
	assert.ErrorIs(t, sink.Write(ctx, run), models.ErrIO)
}

func TestPostgres_RejectsBadRunID(t *testing.T) {
	sink := &Postgres{}
	run := testRun(t)
	run.ID = "not-a-uuid"
	assert.ErrorIs(t, sink.Write(context.Background(), run), models.ErrInvalidInput)
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), PostgresConfig{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
