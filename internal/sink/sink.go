// Package sink delivers generated records to downstream systems.
//
// Sinks run one after another once the output files are written. The first failure
// stops delivery and is returned wrapped with the sink name.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/models"
)

// Sink receives the records of a completed run.
type Sink interface {
	Name() string
	Write(ctx context.Context, run *models.Run) error
	Close() error
}

// Observer is told about every sink write. metrics.Run satisfies it.
type Observer interface {
	ObserveSink(name string, elapsed time.Duration, err error)
}

// Deliver writes run to every sink in order and closes them all.
func Deliver(ctx context.Context, sinks []Sink, run *models.Run, obs Observer, logger *logging.Logger) (err error) {
	if logger == nil {
		logger = logging.Discard()
	}

	defer func() {
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil {
				logger.WarnContext(ctx, "sink close failed", logging.Sink(s.Name()), logging.Error(cerr))
			}
		}
	}()

	for _, s := range sinks {
		start := time.Now()
		werr := s.Write(ctx, run)
		if obs != nil {
			obs.ObserveSink(s.Name(), time.Since(start), werr)
		}
		if werr != nil {
			return fmt.Errorf("sink %s: %w", s.Name(), werr)
		}
		logger.InfoContext(ctx, "records delivered",
			logging.Sink(s.Name()),
			logging.Count(len(run.Result.Logs)),
			"attacks", len(run.Result.Attacks),
		)
	}
	return nil
}
