package simulator

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/models"
)

// Attacker username accuracy is drawn per target from Normal(attackerAccuracyMean, attackerAccuracyStdDev).
const (
	attackerAccuracyMean   = 0.35
	attackerAccuracyStdDev = 0.5
)

// RandomIP returns a dotted IPv4 address built from four random bytes.
func RandomIP(rng *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d", rng.IntN(256), rng.IntN(256), rng.IntN(256), rng.IntN(256))
}

// injectAttack decides whether an attack starts in the hour beginning at hour and,
// if so, runs it and records it.
func (s *Simulator) injectAttack(hour time.Time) error {
	if s.rng.Float64() >= s.cfg.AttackProb {
		return nil
	}

	start := hour.Add(time.Duration(s.rng.IntN(60)) * time.Minute)

	var targets []string
	if s.rng.Float64() < s.cfg.TryAllUsersProb {
		targets = slices.Clone(s.users)
	} else {
		targets = sample(s.rng, s.users, s.rng.IntN(len(s.users)))
	}
	s.rng.Shuffle(len(targets), func(i, j int) {
		targets[i], targets[j] = targets[j], targets[i]
	})

	hackerIP := RandomIP(s.rng)
	accuracy := distuv.Normal{Mu: attackerAccuracyMean, Sigma: attackerAccuracyStdDev, Src: s.rng}

	clock := start
	for _, target := range targets {
		sourceIP := hackerIP
		if s.cfg.VaryIPs {
			sourceIP = RandomIP(s.rng)
		}

		var err error
		clock, err = s.attemptLogin(clock, episode{
			username: target,
			sourceIP: sourceIP,
			accuracy: accuracy.Rand(),
			schedule: s.cfg.AttackerSuccessProbs,
			attack:   true,
		})
		if err != nil {
			return fmt.Errorf("attack at %s: %w", start.Format(models.TimeLayout), err)
		}
	}

	s.attacks = append(s.attacks, models.AttackRecord{
		Start:    start,
		End:      clock,
		SourceIP: hackerIP,
	})

	s.logger.Info("attack injected",
		"start", start.Format(models.TimeLayout),
		"end", clock.Format(models.TimeLayout),
		logging.IP(hackerIP),
		"targets", len(targets),
	)

	return nil
}

// sample picks n distinct elements of items without replacement.
func sample(rng *rand.Rand, items []string, n int) []string {
	pool := slices.Clone(items)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
