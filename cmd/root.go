package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/telhawk-systems/authsim/internal/config"
	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/pkg/output"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configFile string
	noColor    bool
}

// Execute runs the authsim command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "authsim",
		Short: "Authentication log synthesizer",
		Long: `authsim generates realistic authentication logs: legitimate user logins
shaped by an hourly arrival model, interleaved with brute-force attacks.

Output is written as CSV and JSON files and can be delivered to HEC, NATS,
Redis, OpenSearch and PostgreSQL for exercising detection pipelines.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || os.Getenv("NO_COLOR") != "" {
				output.DisableColor()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: ./authsim.yaml, then $HOME/.authsim/authsim.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newGenerateCmd(opts),
		newPoolCmd(opts),
		newValidateCmd(opts),
		newConfigCmd(),
	)

	return rootCmd
}

// bind pairs config keys with flags of cmd, including inherited ones.
func bind(cmd *cobra.Command, pairs ...string) []config.FlagBinding {
	bindings := []config.FlagBinding{
		{Key: "logging.level", Flag: lookup(cmd, "log-level")},
		{Key: "logging.format", Flag: lookup(cmd, "log-format")},
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		bindings = append(bindings, config.FlagBinding{Key: pairs[i], Flag: lookup(cmd, pairs[i+1])})
	}
	return bindings
}

func lookup(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

// loadConfig loads and validates configuration for cmd.
func loadConfig(opts *rootOptions, bindings []config.FlagBinding) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile, bindings...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	logger := logging.New(cfg.LogLevel(), cfg.Logging.Format)
	logging.SetDefault(logger)
	return logger
}
