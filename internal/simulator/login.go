package simulator

import (
	"time"

	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/models"
)

// MaxAttemptsBeforeLockout caps the tries of a single episode.
const MaxAttemptsBeforeLockout = 3

// episode describes one run of authentication attempts against a single account.
type episode struct {
	username string
	sourceIP string
	accuracy float64   // probability the exact username is typed
	schedule []float64 // per-try success probability
	attack   bool
}

// attemptLogin runs ep starting at now and returns the advanced clock.
//
// An episode whose target account is already locked produces a single AccountLocked
// record for the target and nothing else. Otherwise the typed username is chosen once:
// with probability 1-accuracy it is a distortion of the target. After a WrongUsername
// failure the next try reverts to the exact username with probability accuracy, and a
// reverted try that finds the account locked ends the episode there. Exhausting the
// budget after at least one WrongPassword locks the account that took the last wrong
// password.
func (s *Simulator) attemptLogin(now time.Time, ep episode) (time.Time, error) {
	accuracy := clamp01(ep.accuracy)
	tries := min(len(ep.schedule), MaxAttemptsBeforeLockout)

	if tries > 0 && s.locks.isLocked(ep.username, now.Add(time.Second)) {
		now = now.Add(time.Second)
		s.record(now, ep, ep.username, models.ReasonAccountLocked)
		s.locks.afterEpisode(ep.username, now, s.rng)
		return now, nil
	}

	typed := ep.username
	if s.rng.Float64() >= accuracy {
		distorted, err := Distort(s.rng, typed)
		if err != nil {
			return now, err
		}
		typed = distorted
		s.logger.Debug("distorted username", logging.Username(ep.username), "typed", typed)
	}

	succeeded := false
	lockedOut := false
	lastWrongPassword := ""

	for i := 0; i < tries; i++ {
		now = now.Add(time.Second)

		if s.locks.isLocked(typed, now) {
			s.record(now, ep, typed, models.ReasonAccountLocked)
			lockedOut = true
			break
		}

		if !s.pool.Has(typed) {
			s.record(now, ep, typed, models.ReasonWrongUsername)
			if s.rng.Float64() < accuracy {
				typed = ep.username
			}
			continue
		}

		if s.rng.Float64() < ep.schedule[i] {
			s.record(now, ep, typed, models.ReasonNone)
			succeeded = true
			break
		}

		s.record(now, ep, typed, models.ReasonWrongPassword)
		lastWrongPassword = typed
	}

	if !succeeded && !lockedOut && lastWrongPassword != "" {
		s.locks.lock(lastWrongPassword, now)
		s.logger.Debug("account locked", logging.Username(lastWrongPassword), "attack", ep.attack)
	}

	s.locks.afterEpisode(typed, now, s.rng)

	return now, nil
}

func (s *Simulator) record(at time.Time, ep episode, typed string, reason models.FailureReason) {
	s.logs = append(s.logs, models.LogRecord{
		Time:          at,
		SourceIP:      ep.sourceIP,
		Username:      typed,
		Success:       reason == models.ReasonNone,
		FailureReason: reason,
		Attack:        ep.attack,
	})
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
