package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/authsim/internal/config"
	"github.com/telhawk-systems/authsim/internal/identity"
	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/models"
	"github.com/telhawk-systems/authsim/pkg/output"
)

func newPoolCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Build the identity pool and write it",
		Long: `Build the identity pool (username to source IP mapping) without running a
simulation. The pool can be fed back to generate with --pool-in.

Examples:
  authsim pool --ip logs/ips.json
  authsim pool --ip pool.yaml --max-ips 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, bind(cmd,
				"output.ip", "ip",
				"identity.max_ips", "max-ips",
				"identity.seed", "identity-seed",
			))
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			pool, err := buildPool(cfg, logger)
			if err != nil {
				return err
			}

			path := cfg.Output.IPs
			if path == "" {
				return fmt.Errorf("no pool output path set: %w", models.ErrInvalidInput)
			}
			f := identity.Format(format)
			if format == "" {
				f = identity.FormatFromPath(path)
			}
			if err := identity.Write(pool, path, f); err != nil {
				return err
			}

			output.Success("Wrote %d identities to %s", pool.Len(), path)
			return nil
		},
	}

	cmd.Flags().String("ip", "logs/ips.json", "pool output file")
	cmd.Flags().Int("max-ips", 3, "maximum source IPs per user")
	cmd.Flags().Int64("identity-seed", 13, "seed for IP assignment and generated names")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from file extension)")

	return cmd
}

// buildPool loads a saved pool or builds a fresh one from word lists, falling back to
// generated names when the word lists are missing.
func buildPool(cfg *config.Config, logger *logging.Logger) (*models.IdentityPool, error) {
	idc := cfg.Identity

	if idc.PoolIn != "" {
		pool, err := identity.Load(idc.PoolIn)
		if err != nil {
			return nil, err
		}
		logger.Info("identity pool loaded", logging.Path(idc.PoolIn), logging.Count(pool.Len()))
		return pool, nil
	}

	first, last, err := loadNames(idc)
	if err != nil {
		return nil, err
	}

	usernames := identity.Usernames(first, last, idc.Roles)
	pool, err := identity.Build(usernames, idc.MaxIPs, idc.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("identity pool built", logging.Count(pool.Len()), "max_ips", idc.MaxIPs)
	return pool, nil
}

func loadNames(idc config.IdentityConfig) (first, last []string, err error) {
	if idc.FirstNames != "" && idc.LastNames != "" {
		first, err = identity.LoadWordList(idc.FirstNames)
		if err == nil {
			last, err = identity.LoadWordList(idc.LastNames)
		}
		if err == nil {
			return first, last, nil
		}
		if !errors.Is(err, models.ErrIO) || idc.GeneratedNames == 0 || !missing(idc.FirstNames, idc.LastNames) {
			return nil, nil, err
		}
		output.Warn("Word lists not found, generating %d names", idc.GeneratedNames)
	}

	if idc.GeneratedNames == 0 {
		return nil, nil, nil
	}
	first, last = identity.GeneratedNames(gofakeit.New(idc.Seed), idc.GeneratedNames)
	return first, last, nil
}

func missing(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return true
		}
	}
	return false
}
