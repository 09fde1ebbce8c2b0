package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/authsim/internal/config"
	"github.com/telhawk-systems/authsim/internal/export"
	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/metrics"
	"github.com/telhawk-systems/authsim/internal/models"
	"github.com/telhawk-systems/authsim/internal/simulator"
	"github.com/telhawk-systems/authsim/internal/sink"
	"github.com/telhawk-systems/authsim/pkg/output"
)

type generateOptions struct {
	dryRun  bool
	noSinks bool
	output  string
}

// runSummary is the machine-readable form of the generate summary.
type runSummary struct {
	RunID      string         `json:"run_id"`
	Seed       uint64         `json:"seed"`
	Start      string         `json:"start"`
	Hours      int            `json:"hours"`
	Identities int            `json:"identities"`
	LogRecords int            `json:"log_records"`
	Successful int            `json:"successful"`
	Failures   map[string]int `json:"failures"`
	Attacks    int            `json:"attacks"`
	DryRun     bool           `json:"dry_run"`
	Files      []string       `json:"files"`
	ElapsedMS  int64          `json:"elapsed_ms"`
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Simulate logins and attacks and write the logs",
		Long: `Run a simulation and write the identity pool, the authentication log and the
attack log. Enabled sinks receive the records after the files are written.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. ./authsim.yaml (current directory)
  3. ~/.authsim/authsim.yaml (user home)
  4. Built-in defaults

Examples:
  # 30 days from the default start date
  authsim generate

  # One week with frequent attacks, logs only
  authsim generate --days 7 --attack-prob 0.5 --ip "" --hacklog ""

  # Preview the volume without writing anything
  authsim generate --days 90 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, bind(cmd,
				"simulation.days", "days",
				"simulation.start_date", "start-date",
				"simulation.seed", "seed",
				"simulation.attack_prob", "attack-prob",
				"simulation.try_all_users_prob", "try-all-users-prob",
				"simulation.vary_ips", "vary-ips",
				"identity.pool_in", "pool-in",
				"lockout.policy", "lockout-policy",
				"output.ip", "ip",
				"output.log", "log",
				"output.hacklog", "hacklog",
				"output.metrics_file", "metrics-file",
			))
			if err != nil {
				return err
			}
			if opts.output != "text" && opts.output != "json" {
				return fmt.Errorf("output must be text or json, got %q: %w", opts.output, models.ErrInvalidInput)
			}
			return runGenerate(cmd.Context(), cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int("days", 30, "number of days to simulate")
	flags.String("start-date", "2022-01-01 00:00:00", "first simulated hour (YYYY-MM-DD HH:MM:SS, UTC)")
	flags.Uint64("seed", 13, "random seed for the simulation")
	flags.Float64("attack-prob", 0.1, "probability of an attack starting in a given hour")
	flags.Float64("try-all-users-prob", 0.2, "probability an attacker targets every user")
	flags.Bool("vary-ips", false, "attackers change source IP between attempts")
	flags.String("pool-in", "", "load the identity pool from this file instead of building it")
	flags.String("lockout-policy", "legacy", "lockout policy: legacy or cooldown")
	flags.String("ip", "logs/ips.json", "identity pool output file (empty to skip)")
	flags.String("log", "logs/log.csv", "authentication log output file (empty to skip)")
	flags.String("hacklog", "logs/attack.csv", "attack log output file (empty to skip)")
	flags.String("metrics-file", "", "write run metrics in Prometheus text format")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "simulate and print a summary without writing output")
	flags.BoolVar(&opts.noSinks, "no-sinks", false, "skip delivery to configured sinks")
	flags.StringVarP(&opts.output, "output", "o", "text", "summary format: text or json")

	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, opts *generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg)

	pool, err := buildPool(cfg, logger)
	if err != nil {
		return err
	}

	simCfg, err := cfg.SimulatorConfig()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	runLogger := logger.With(logging.RunID(runID))

	sim, err := simulator.New(simCfg, pool, runLogger)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := sim.Run()
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	run := &models.Run{
		ID:     runID,
		Seed:   simCfg.Seed,
		Start:  simCfg.Start,
		Pool:   pool,
		Result: result,
	}

	m := metrics.New()
	m.Observe(run)

	if opts.dryRun {
		if opts.output == "json" {
			return output.JSON(summarize(run, time.Since(started), nil, true))
		}
		printSummary(run, time.Since(started), nil)
		output.Info("Dry run, nothing written")
		return nil
	}

	written, err := export.WriteFiles(export.Paths{
		Pool:    cfg.Output.IPs,
		Logs:    cfg.Output.Log,
		Attacks: cfg.Output.HackLog,
	}, run)
	if err != nil {
		return err
	}
	for _, f := range written.Files {
		runLogger.Info("file written", logging.Path(f))
	}

	if !opts.noSinks {
		sinks, err := buildSinks(ctx, cfg.Sinks)
		if err != nil {
			return err
		}
		if err := sink.Deliver(ctx, sinks, run, m, runLogger); err != nil {
			return err
		}
	}

	if cfg.Output.MetricsFile != "" {
		if err := m.WriteFile(cfg.Output.MetricsFile); err != nil {
			return err
		}
		written.Files = append(written.Files, cfg.Output.MetricsFile)
	}

	if opts.output == "json" {
		return output.JSON(summarize(run, time.Since(started), written.Files, false))
	}
	printSummary(run, time.Since(started), written.Files)
	return nil
}

// buildSinks connects every enabled sink. Sinks already connected are closed when a
// later one fails.
func buildSinks(ctx context.Context, cfg config.SinksConfig) (sinks []sink.Sink, err error) {
	defer func() {
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			sinks = nil
		}
	}()

	if cfg.HEC.Enabled {
		s, err := sink.NewHEC(sink.HECConfig{
			URL:       cfg.HEC.URL,
			Token:     cfg.HEC.Token,
			Index:     cfg.HEC.Index,
			BatchSize: cfg.HEC.BatchSize,
			Timeout:   cfg.HEC.Timeout,
		})
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	if cfg.NATS.Enabled {
		s, err := sink.NewNATS(sink.NATSConfig{
			URL:            cfg.NATS.URL,
			Name:           "authsim",
			Token:          cfg.NATS.Token,
			Username:       cfg.NATS.Username,
			Password:       cfg.NATS.Password,
			SubjectLogs:    cfg.NATS.SubjectLogs,
			SubjectAttacks: cfg.NATS.SubjectAttacks,
			Timeout:        cfg.NATS.Timeout,
		})
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Redis.Enabled {
		s, err := sink.NewRedis(ctx, sink.RedisConfig{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			StreamLogs:    cfg.Redis.StreamLogs,
			StreamAttacks: cfg.Redis.StreamAttacks,
			MaxLen:        cfg.Redis.MaxLen,
		})
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	if cfg.OpenSearch.Enabled {
		s, err := sink.NewOpenSearch(ctx, sink.OpenSearchConfig{
			URL:         cfg.OpenSearch.URL,
			Username:    cfg.OpenSearch.Username,
			Password:    cfg.OpenSearch.Password,
			Insecure:    cfg.OpenSearch.Insecure,
			LogIndex:    cfg.OpenSearch.LogIndex,
			AttackIndex: cfg.OpenSearch.AttackIndex,
		})
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Postgres.Enabled {
		s, err := sink.NewPostgres(ctx, sink.PostgresConfig{
			DSN:     cfg.Postgres.DSN,
			Migrate: cfg.Postgres.Migrate,
		})
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

func summarize(run *models.Run, elapsed time.Duration, files []string, dryRun bool) runSummary {
	reasons := countReasons(run.Result.Logs)
	failures := make(map[string]int, len(failureReasons))
	for _, r := range failureReasons {
		failures[r.String()] = reasons[r]
	}
	if files == nil {
		files = []string{}
	}
	return runSummary{
		RunID:      run.ID,
		Seed:       run.Seed,
		Start:      run.Start.Format(models.TimeLayout),
		Hours:      run.Result.Hours,
		Identities: run.Pool.Len(),
		LogRecords: len(run.Result.Logs),
		Successful: reasons[models.ReasonNone],
		Failures:   failures,
		Attacks:    len(run.Result.Attacks),
		DryRun:     dryRun,
		Files:      files,
		ElapsedMS:  elapsed.Milliseconds(),
	}
}

var failureReasons = []models.FailureReason{models.ReasonWrongPassword, models.ReasonWrongUsername, models.ReasonAccountLocked}

func countReasons(logs []models.LogRecord) map[models.FailureReason]int {
	reasons := map[models.FailureReason]int{}
	for _, rec := range logs {
		reasons[rec.FailureReason]++
	}
	return reasons
}

func printSummary(run *models.Run, elapsed time.Duration, files []string) {
	result := run.Result
	reasons := countReasons(result.Logs)

	table := output.NewTable("METRIC", "VALUE")
	table.AddRow("run", run.ID)
	table.AddRow("hours", strconv.Itoa(result.Hours))
	table.AddRow("identities", strconv.Itoa(run.Pool.Len()))
	table.AddRow("log records", strconv.Itoa(len(result.Logs)))
	table.AddRow("successful", strconv.Itoa(reasons[models.ReasonNone]))
	for _, r := range failureReasons {
		table.AddRow(r.String(), strconv.Itoa(reasons[r]))
	}
	table.AddRow("attacks", strconv.Itoa(len(result.Attacks)))
	table.AddRow("elapsed", elapsed.Round(time.Millisecond).String())
	table.Render()

	for _, f := range files {
		output.Success("Wrote %s", f)
	}
}
