// Package config loads authsim configuration.
//
// Values cascade: flags > ./authsim.yaml > ~/.authsim/authsim.yaml > defaults.
// Every key can also be set from the environment with the AUTHSIM_ prefix, dots
// replaced by underscores (AUTHSIM_SIMULATION_DAYS). A .env file in the working
// directory is loaded first.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file name searched for without its extension.
const FileName = "authsim"

// Config is the complete authsim configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Identity   IdentityConfig   `mapstructure:"identity" yaml:"identity"`
	Lockout    LockoutConfig    `mapstructure:"lockout" yaml:"lockout"`
	Arrival    ArrivalConfig    `mapstructure:"arrival" yaml:"arrival"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Sinks      SinksConfig      `mapstructure:"sinks" yaml:"sinks"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// SimulationConfig holds the run parameters.
type SimulationConfig struct {
	StartDate             string    `mapstructure:"start_date" yaml:"start_date" validate:"required"`
	Days                  int       `mapstructure:"days" yaml:"days" validate:"gte=0"`
	Seed                  uint64    `mapstructure:"seed" yaml:"seed"`
	AttackerSuccessProbs  []float64 `mapstructure:"attacker_success_probs" yaml:"attacker_success_probs" validate:"dive,gte=0,lte=1"`
	ValidUserSuccessProbs []float64 `mapstructure:"valid_user_success_probs" yaml:"valid_user_success_probs" validate:"dive,gte=0,lte=1"`
	AttackProb            float64   `mapstructure:"attack_prob" yaml:"attack_prob" validate:"gte=0,lte=1"`
	TryAllUsersProb       float64   `mapstructure:"try_all_users_prob" yaml:"try_all_users_prob" validate:"gte=0,lte=1"`
	VaryIPs               bool      `mapstructure:"vary_ips" yaml:"vary_ips"`
}

// IdentityConfig controls how the identity pool is built.
type IdentityConfig struct {
	FirstNames     string   `mapstructure:"first_names" yaml:"first_names"`
	LastNames      string   `mapstructure:"last_names" yaml:"last_names"`
	Roles          []string `mapstructure:"roles" yaml:"roles" validate:"dive,min=2"`
	GeneratedNames int      `mapstructure:"generated_names" yaml:"generated_names" validate:"gte=0"`
	MaxIPs         int      `mapstructure:"max_ips" yaml:"max_ips" validate:"gte=1"`
	Seed           int64    `mapstructure:"seed" yaml:"seed"`
	PoolIn         string   `mapstructure:"pool_in" yaml:"pool_in"`
}

// LockoutConfig selects the lockout policy.
type LockoutConfig struct {
	Policy   string        `mapstructure:"policy" yaml:"policy" validate:"oneof=cooldown legacy"`
	Duration time.Duration `mapstructure:"duration" yaml:"duration" validate:"gte=0"`
}

// ArrivalConfig bounds the hourly arrival rate per regime.
type ArrivalConfig struct {
	WorkHours TriangularConfig `mapstructure:"work_hours" yaml:"work_hours"`
	LateNight UniformConfig    `mapstructure:"late_night" yaml:"late_night"`
	Daytime   UniformConfig    `mapstructure:"daytime" yaml:"daytime"`
}

type TriangularConfig struct {
	Min  float64 `mapstructure:"min" yaml:"min"`
	Max  float64 `mapstructure:"max" yaml:"max"`
	Mode float64 `mapstructure:"mode" yaml:"mode"`
}

type UniformConfig struct {
	Min float64 `mapstructure:"min" yaml:"min"`
	Max float64 `mapstructure:"max" yaml:"max"`
}

// OutputConfig names the output files. An empty path skips that file.
type OutputConfig struct {
	IPs         string `mapstructure:"ip" yaml:"ip"`
	Log         string `mapstructure:"log" yaml:"log"`
	HackLog     string `mapstructure:"hacklog" yaml:"hacklog"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// SinksConfig enables downstream delivery.
type SinksConfig struct {
	HEC        HECConfig        `mapstructure:"hec" yaml:"hec"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch" yaml:"opensearch"`
	Postgres   PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
}

type HECConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	URL       string        `mapstructure:"url" yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Token     string        `mapstructure:"token" yaml:"token" validate:"required_if=Enabled true"`
	Index     string        `mapstructure:"index" yaml:"index"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=0"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	URL            string        `mapstructure:"url" yaml:"url" validate:"required_if=Enabled true"`
	Token          string        `mapstructure:"token" yaml:"token"`
	Username       string        `mapstructure:"username" yaml:"username"`
	Password       string        `mapstructure:"password" yaml:"password"`
	SubjectLogs    string        `mapstructure:"subject_logs" yaml:"subject_logs"`
	SubjectAttacks string        `mapstructure:"subject_attacks" yaml:"subject_attacks"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr          string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
	Password      string `mapstructure:"password" yaml:"password"`
	DB            int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
	StreamLogs    string `mapstructure:"stream_logs" yaml:"stream_logs"`
	StreamAttacks string `mapstructure:"stream_attacks" yaml:"stream_attacks"`
	MaxLen        int64  `mapstructure:"max_len" yaml:"max_len" validate:"gte=0"`
}

type OpenSearchConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	URL         string `mapstructure:"url" yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
	LogIndex    string `mapstructure:"log_index" yaml:"log_index"`
	AttackIndex string `mapstructure:"attack_index" yaml:"attack_index"`
}

type PostgresConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Enabled true"`
	Migrate bool   `mapstructure:"migrate" yaml:"migrate"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// FlagBinding overrides a config key with a command-line flag when the flag is set.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads configuration from configPath, or searches the working directory and
// ~/.authsim when configPath is empty. A missing file is not an error.
func Load(configPath string, flags ...FlagBinding) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AUTHSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".authsim"))
		}
	}

	for _, b := range flags {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.Flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case configPath != "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Used returns the config file a fresh Load(configPath) would read, or "" when none exists.
func Used(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}
	candidates := []string{FileName + ".yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".authsim", FileName+".yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
