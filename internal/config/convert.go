package config

import (
	"log/slog"

	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/simulator"
)

// SimulatorConfig converts the validated configuration into engine parameters.
func (c *Config) SimulatorConfig() (simulator.Config, error) {
	start, err := simulator.ParseStartDate(c.Simulation.StartDate)
	if err != nil {
		return simulator.Config{}, err
	}
	policy, err := simulator.ParseLockoutPolicy(c.Lockout.Policy)
	if err != nil {
		return simulator.Config{}, err
	}

	a := c.Arrival
	return simulator.Config{
		Start:                 start,
		Days:                  c.Simulation.Days,
		Seed:                  c.Simulation.Seed,
		AttackerSuccessProbs:  c.Simulation.AttackerSuccessProbs,
		ValidUserSuccessProbs: c.Simulation.ValidUserSuccessProbs,
		AttackProb:            c.Simulation.AttackProb,
		TryAllUsersProb:       c.Simulation.TryAllUsersProb,
		VaryIPs:               c.Simulation.VaryIPs,
		Lockout: simulator.LockoutConfig{
			Policy:   policy,
			Duration: c.Lockout.Duration,
		},
		Arrival: simulator.ArrivalModel{
			WorkHours: simulator.TriangularBounds{Min: a.WorkHours.Min, Max: a.WorkHours.Max, Mode: a.WorkHours.Mode},
			LateNight: simulator.UniformBounds{Min: a.LateNight.Min, Max: a.LateNight.Max},
			Daytime:   simulator.UniformBounds{Min: a.Daytime.Min, Max: a.Daytime.Max},
		},
	}, nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	return logging.ParseLevel(c.Logging.Level)
}
