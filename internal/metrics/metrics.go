// Package metrics summarizes a run as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Run holds the metrics of one simulation in its own registry.
type Run struct {
	Registry *prometheus.Registry

	LogRecords *prometheus.CounterVec
	Attacks    prometheus.Counter

	AttackDuration prometheus.Histogram

	Identities     prometheus.Gauge
	SimulatedHours prometheus.Gauge

	SinkDuration *prometheus.HistogramVec
	SinkErrors   *prometheus.CounterVec
}

// New registers every metric in a fresh registry.
func New() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Run{
		Registry: reg,

		LogRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsim_log_records_total",
				Help: "Total number of generated authentication log records",
			},
			[]string{"outcome", "reason"},
		),

		Attacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "authsim_attacks_total",
				Help: "Total number of injected brute-force attacks",
			},
		),

		// Attacks last from seconds to a few minutes of simulated time.
		AttackDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "authsim_attack_duration_seconds",
				Help:    "Simulated duration of injected attacks in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),

		Identities: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "authsim_identities",
				Help: "Number of usernames in the identity pool",
			},
		),

		SimulatedHours: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "authsim_simulated_hours",
				Help: "Number of hourly ticks simulated",
			},
		),

		SinkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authsim_sink_write_duration_seconds",
				Help:    "Duration of sink writes in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),

		SinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsim_sink_errors_total",
				Help: "Total number of failed sink writes",
			},
			[]string{"sink"},
		),
	}
}

// Observe records the output of run.
func (m *Run) Observe(run *models.Run) {
	if run.Pool != nil {
		m.Identities.Set(float64(run.Pool.Len()))
	}
	if run.Result == nil {
		return
	}

	m.SimulatedHours.Set(float64(run.Result.Hours))

	for _, rec := range run.Result.Logs {
		outcome := "success"
		reason := "none"
		if !rec.Success {
			outcome = "failure"
			reason = rec.FailureReason.String()
		}
		m.LogRecords.WithLabelValues(outcome, reason).Inc()
	}

	for _, a := range run.Result.Attacks {
		m.Attacks.Inc()
		m.AttackDuration.Observe(a.Duration().Seconds())
	}
}

// ObserveSink records one sink write.
func (m *Run) ObserveSink(name string, elapsed time.Duration, err error) {
	m.SinkDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		m.SinkErrors.WithLabelValues(name).Inc()
	}
}

// WriteFile writes the registry in the node_exporter textfile format.
func (m *Run) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics %s: %w: %v", path, models.ErrIO, err)
	}
	return nil
}
