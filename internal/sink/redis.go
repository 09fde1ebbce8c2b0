package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Default Redis stream keys.
const (
	StreamLogs    = "authsim:logs"
	StreamAttacks = "authsim:attacks"
)

// RedisConfig configures the Redis streams sink.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	StreamLogs    string
	StreamAttacks string
	MaxLen        int64 // approximate stream cap, 0 keeps everything
	BatchSize     int
}

// Redis appends records to Redis streams, one entry per record.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w: %v", models.ErrIO, err)
	}
	return newRedis(client, cfg), nil
}

func newRedis(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.StreamLogs == "" {
		cfg.StreamLogs = StreamLogs
	}
	if cfg.StreamAttacks == "" {
		cfg.StreamAttacks = StreamAttacks
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Redis{client: client, cfg: cfg}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Write(ctx context.Context, run *models.Run) error {
	pipe := r.client.Pipeline()
	queued := 0

	flush := func() error {
		if queued == 0 {
			return nil
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("xadd: %w: %v", models.ErrIO, err)
		}
		queued = 0
		return nil
	}

	add := func(stream string, values map[string]interface{}) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: r.cfg.MaxLen,
			Approx: r.cfg.MaxLen > 0,
			Values: values,
		})
		queued++
		if queued >= r.cfg.BatchSize {
			return flush()
		}
		return nil
	}

	for _, rec := range run.Result.Logs {
		if err := add(r.cfg.StreamLogs, logValues(run.ID, rec)); err != nil {
			return err
		}
	}
	for _, a := range run.Result.Attacks {
		if err := add(r.cfg.StreamAttacks, attackValues(run.ID, a)); err != nil {
			return err
		}
	}
	return flush()
}

func logValues(runID string, rec models.LogRecord) map[string]interface{} {
	return map[string]interface{}{
		"run_id":         runID,
		"datetime":       rec.Time.Format(models.TimeLayout),
		"source_ip":      rec.SourceIP,
		"username":       rec.Username,
		"success":        strconv.FormatBool(rec.Success),
		"failure_reason": rec.FailureReason.String(),
		"attack":         strconv.FormatBool(rec.Attack),
	}
}

func attackValues(runID string, a models.AttackRecord) map[string]interface{} {
	return map[string]interface{}{
		"run_id":    runID,
		"start":     a.Start.Format(models.TimeLayout),
		"end":       a.End.Format(models.TimeLayout),
		"source_ip": a.SourceIP,
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
