package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/authsim/internal/config"
	"github.com/telhawk-systems/authsim/pkg/output"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		Long: `Load the configuration cascade and report every invalid value at once.
With --show the effective configuration is printed as YAML.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configFile, bind(cmd)...)
			if err != nil {
				return err
			}

			if used := config.Used(root.configFile); used != "" {
				output.Info("Config file: %s", used)
			} else {
				output.Info("No config file found, using defaults")
			}

			if err := cfg.Validate(); err != nil {
				for _, line := range strings.Split(err.Error(), "\n") {
					output.Error("%s", line)
				}
				return err
			}

			if show {
				data, err := cfg.Encode()
				if err != nil {
					return err
				}
				if _, err := output.Stdout.Write(data); err != nil {
					return err
				}
			}

			output.Success("Configuration is valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the effective configuration")
	return cmd
}
