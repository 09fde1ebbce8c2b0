package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/authsim/internal/identity"
)

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("simulation.start_date", d.Simulation.StartDate)
	v.SetDefault("simulation.days", d.Simulation.Days)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.attacker_success_probs", d.Simulation.AttackerSuccessProbs)
	v.SetDefault("simulation.valid_user_success_probs", d.Simulation.ValidUserSuccessProbs)
	v.SetDefault("simulation.attack_prob", d.Simulation.AttackProb)
	v.SetDefault("simulation.try_all_users_prob", d.Simulation.TryAllUsersProb)
	v.SetDefault("simulation.vary_ips", d.Simulation.VaryIPs)

	v.SetDefault("identity.first_names", d.Identity.FirstNames)
	v.SetDefault("identity.last_names", d.Identity.LastNames)
	v.SetDefault("identity.roles", d.Identity.Roles)
	v.SetDefault("identity.generated_names", d.Identity.GeneratedNames)
	v.SetDefault("identity.max_ips", d.Identity.MaxIPs)
	v.SetDefault("identity.seed", d.Identity.Seed)
	v.SetDefault("identity.pool_in", d.Identity.PoolIn)

	v.SetDefault("lockout.policy", d.Lockout.Policy)
	v.SetDefault("lockout.duration", d.Lockout.Duration)

	v.SetDefault("arrival.work_hours.min", d.Arrival.WorkHours.Min)
	v.SetDefault("arrival.work_hours.max", d.Arrival.WorkHours.Max)
	v.SetDefault("arrival.work_hours.mode", d.Arrival.WorkHours.Mode)
	v.SetDefault("arrival.late_night.min", d.Arrival.LateNight.Min)
	v.SetDefault("arrival.late_night.max", d.Arrival.LateNight.Max)
	v.SetDefault("arrival.daytime.min", d.Arrival.Daytime.Min)
	v.SetDefault("arrival.daytime.max", d.Arrival.Daytime.Max)

	v.SetDefault("output.ip", d.Output.IPs)
	v.SetDefault("output.log", d.Output.Log)
	v.SetDefault("output.hacklog", d.Output.HackLog)
	v.SetDefault("output.metrics_file", d.Output.MetricsFile)

	v.SetDefault("sinks.hec.enabled", false)
	v.SetDefault("sinks.hec.url", d.Sinks.HEC.URL)
	v.SetDefault("sinks.hec.token", "")
	v.SetDefault("sinks.hec.index", "")
	v.SetDefault("sinks.hec.batch_size", d.Sinks.HEC.BatchSize)
	v.SetDefault("sinks.hec.timeout", d.Sinks.HEC.Timeout)

	v.SetDefault("sinks.nats.enabled", false)
	v.SetDefault("sinks.nats.url", d.Sinks.NATS.URL)
	v.SetDefault("sinks.nats.token", "")
	v.SetDefault("sinks.nats.username", "")
	v.SetDefault("sinks.nats.password", "")
	v.SetDefault("sinks.nats.subject_logs", d.Sinks.NATS.SubjectLogs)
	v.SetDefault("sinks.nats.subject_attacks", d.Sinks.NATS.SubjectAttacks)
	v.SetDefault("sinks.nats.timeout", d.Sinks.NATS.Timeout)

	v.SetDefault("sinks.redis.enabled", false)
	v.SetDefault("sinks.redis.addr", d.Sinks.Redis.Addr)
	v.SetDefault("sinks.redis.password", "")
	v.SetDefault("sinks.redis.db", 0)
	v.SetDefault("sinks.redis.stream_logs", d.Sinks.Redis.StreamLogs)
	v.SetDefault("sinks.redis.stream_attacks", d.Sinks.Redis.StreamAttacks)
	v.SetDefault("sinks.redis.max_len", 0)

	v.SetDefault("sinks.opensearch.enabled", false)
	v.SetDefault("sinks.opensearch.url", d.Sinks.OpenSearch.URL)
	v.SetDefault("sinks.opensearch.username", d.Sinks.OpenSearch.Username)
	v.SetDefault("sinks.opensearch.password", "")
	v.SetDefault("sinks.opensearch.insecure", false)
	v.SetDefault("sinks.opensearch.log_index", d.Sinks.OpenSearch.LogIndex)
	v.SetDefault("sinks.opensearch.attack_index", d.Sinks.OpenSearch.AttackIndex)

	v.SetDefault("sinks.postgres.enabled", false)
	v.SetDefault("sinks.postgres.dsn", "")
	v.SetDefault("sinks.postgres.migrate", d.Sinks.Postgres.Migrate)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			StartDate:             "2022-01-01 00:00:00",
			Days:                  30,
			Seed:                  13,
			AttackerSuccessProbs:  []float64{0.25, 0.45},
			ValidUserSuccessProbs: []float64{0.87, 0.93, 0.95},
			AttackProb:            0.1,
			TryAllUsersProb:       0.2,
		},
		Identity: IdentityConfig{
			FirstNames:     "data/first_names.txt",
			LastNames:      "data/last_names.txt",
			Roles:          append([]string(nil), identity.DefaultRoles...),
			GeneratedNames: 10,
			MaxIPs:         3,
			Seed:           13,
		},
		Lockout: LockoutConfig{
			Policy:   "legacy",
			Duration: 15 * time.Minute,
		},
		Arrival: ArrivalConfig{
			WorkHours: TriangularConfig{Min: 1.5, Max: 5.0, Mode: 2.75},
			LateNight: UniformConfig{Min: 0, Max: 5.0},
			Daytime:   UniformConfig{Min: 1.5, Max: 4.25},
		},
		Output: OutputConfig{
			IPs:     "logs/ips.json",
			Log:     "logs/log.csv",
			HackLog: "logs/attack.csv",
		},
		Sinks: SinksConfig{
			HEC: HECConfig{
				URL:       "http://localhost:8088",
				BatchSize: 50,
				Timeout:   10 * time.Second,
			},
			NATS: NATSConfig{
				URL:            "nats://localhost:4222",
				SubjectLogs:    "authsim.logs",
				SubjectAttacks: "authsim.attacks",
				Timeout:        5 * time.Second,
			},
			Redis: RedisConfig{
				Addr:          "localhost:6379",
				StreamLogs:    "authsim:logs",
				StreamAttacks: "authsim:attacks",
			},
			OpenSearch: OpenSearchConfig{
				URL:         "https://localhost:9200",
				Username:    "admin",
				LogIndex:    "authsim-auth",
				AttackIndex: "authsim-attacks",
			},
			Postgres: PostgresConfig{
				Migrate: true,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
