package sink

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/authsim/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresConfig configures the Postgres sink.
type PostgresConfig struct {
	DSN     string
	Migrate bool
}

// Postgres copies runs into the runs, auth_logs and attacks tables.
type Postgres struct {
	pool *pgxpool.Pool
}

// Migrate applies the embedded schema migrations to the database at dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w: %v", models.ErrIO, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w: %v", models.ErrIO, err)
	}
	return nil
}

// NewPostgres optionally migrates, then opens a connection pool.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres sink needs a dsn: %w", models.ErrInvalidInput)
	}
	if cfg.Migrate {
		if err := Migrate(cfg.DSN); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w: %v", models.ErrInvalidInput, err)
	}
	poolCfg.MaxConns = 4
	poolCfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w: %v", models.ErrIO, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %v", models.ErrIO, err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Name() string { return "postgres" }

// Write stores run in a single transaction.
func (p *Postgres) Write(ctx context.Context, run *models.Run) error {
	runID, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", run.ID, models.ErrInvalidInput)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w: %v", models.ErrIO, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	identities := 0
	if run.Pool != nil {
		identities = run.Pool.Len()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, seed, start_time, hours, identities) VALUES ($1, $2, $3, $4, $5)`,
		runID, int64(run.Seed), run.Start, run.Result.Hours, identities,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w: %v", models.ErrIO, err)
	}

	logs := run.Result.Logs
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"auth_logs"},
		[]string{"run_id", "seq", "event_time", "source_ip", "username", "success", "failure_reason", "attack"},
		pgx.CopyFromSlice(len(logs), func(i int) ([]any, error) {
			rec := logs[i]
			var reason any
			if !rec.Success {
				reason = rec.FailureReason.String()
			}
			ip, err := netip.ParseAddr(rec.SourceIP)
			if err != nil {
				return nil, fmt.Errorf("source ip %q: %w", rec.SourceIP, models.ErrInvalidInput)
			}
			return []any{runID, int32(i), rec.Time, ip, rec.Username, rec.Success, reason, rec.Attack}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy auth_logs: %w: %v", models.ErrIO, err)
	}

	attacks := run.Result.Attacks
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"attacks"},
		[]string{"run_id", "seq", "start_time", "end_time", "source_ip"},
		pgx.CopyFromSlice(len(attacks), func(i int) ([]any, error) {
			a := attacks[i]
			ip, err := netip.ParseAddr(a.SourceIP)
			if err != nil {
				return nil, fmt.Errorf("source ip %q: %w", a.SourceIP, models.ErrInvalidInput)
			}
			return []any{runID, int32(i), a.Start, a.End, ip}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy attacks: %w: %v", models.ErrIO, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w: %v", models.ErrIO, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
