// Package simulator generates authentication logs: legitimate logins shaped by an
// hourly arrival model, interleaved with brute-force attacks.
//
// A Simulator owns a single seeded generator. Every random draw of a run comes from it,
// so a seed and configuration always reproduce the same records.
package simulator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/telhawk-systems/authsim/internal/logging"
	"github.com/telhawk-systems/authsim/internal/models"
)

// Legitimate users almost always type their username correctly.
const (
	validAccuracyMean   = 1.01
	validAccuracyStdDev = 0.01
)

// Config holds the parameters of one run.
type Config struct {
	Start                 time.Time
	Days                  int
	Seed                  uint64
	AttackerSuccessProbs  []float64
	ValidUserSuccessProbs []float64
	AttackProb            float64
	TryAllUsersProb       float64
	VaryIPs               bool
	Lockout               LockoutConfig
	Arrival               ArrivalModel // zero value selects DefaultArrivalModel
}

// ParseStartDate parses a start timestamp in YYYY-MM-DD HH:MM:SS form as UTC.
func ParseStartDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(models.TimeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("start date %q: %w", s, models.ErrInvalidDate)
	}
	return t, nil
}

// Simulator is the state of one run. It is not safe for concurrent use and
// should be discarded after Run returns.
type Simulator struct {
	cfg     Config
	pool    *models.IdentityPool
	users   []string
	rng     *rand.Rand
	arrival ArrivalModel
	locks   *lockedAccounts
	logger  *logging.Logger

	logs    []models.LogRecord
	attacks []models.AttackRecord
	ran     bool
}

// New prepares a run over pool. A nil logger discards log output.
func New(cfg Config, pool *models.IdentityPool, logger *logging.Logger) (*Simulator, error) {
	if pool == nil || pool.Len() == 0 {
		return nil, fmt.Errorf("identity pool is empty: %w", models.ErrInvalidInput)
	}
	if cfg.Start.IsZero() {
		return nil, fmt.Errorf("start date not set: %w", models.ErrInvalidDate)
	}
	if cfg.Days < 0 {
		return nil, fmt.Errorf("days must not be negative, got %d: %w", cfg.Days, models.ErrInvalidInput)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	arrival := cfg.Arrival
	if arrival.IsZero() {
		arrival = DefaultArrivalModel
	}

	return &Simulator{
		cfg:     cfg,
		pool:    pool,
		users:   pool.Usernames(),
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		arrival: arrival,
		locks:   newLockedAccounts(cfg.Lockout),
		logger:  logger,
	}, nil
}

// Hours returns the index of the last hourly tick. Ticks run from 0 to Hours inclusive.
func (s *Simulator) Hours() int {
	end := s.cfg.Start.AddDate(0, 0, s.cfg.Days)
	return int(end.Sub(s.cfg.Start) / time.Hour)
}

// Run steps through every hour and returns the generated records. On error no
// records are returned.
func (s *Simulator) Run() (*models.Result, error) {
	if s.ran {
		return nil, fmt.Errorf("simulator already ran: %w", models.ErrInvalidInput)
	}
	s.ran = true

	hours := s.Hours()
	s.logger.Info("simulation started",
		"start", s.cfg.Start.Format(models.TimeLayout),
		"hours", hours,
		"users", len(s.users),
		"seed", s.cfg.Seed,
	)

	for offset := 0; offset <= hours; offset++ {
		if err := s.tick(s.cfg.Start.Add(time.Duration(offset) * time.Hour)); err != nil {
			return nil, err
		}
	}

	s.logger.Info("simulation finished",
		logging.Count(len(s.logs)),
		"attacks", len(s.attacks),
		"locked", s.locks.Len(),
	)

	return &models.Result{
		Logs:    s.logs,
		Attacks: s.attacks,
		Hours:   hours + 1,
	}, nil
}

// tick simulates one hour: a possible attack, then that hour's legitimate arrivals.
func (s *Simulator) tick(hour time.Time) error {
	if err := s.injectAttack(hour); err != nil {
		return err
	}

	arrivals, gaps, err := s.arrival.Sample(hour, s.rng)
	if err != nil {
		return err
	}

	// One username serves every arrival of the hour.
	user := s.users[s.rng.IntN(len(s.users))]

	current := hour
	for i := 0; i < arrivals; i++ {
		current = current.Add(time.Duration(gaps[i]) * time.Minute)
		current, err = s.legitimateLogin(current, user)
		if err != nil {
			return fmt.Errorf("login for %s at %s: %w", user, current.Format(models.TimeLayout), err)
		}
	}

	s.logger.Debug("hour simulated",
		"hour", hour.Format(models.TimeLayout),
		"arrivals", arrivals,
		logging.Username(user),
	)
	return nil
}

func (s *Simulator) legitimateLogin(now time.Time, user string) (time.Time, error) {
	ips := s.pool.IPs(user)
	sourceIP := ips[s.rng.IntN(len(ips))]

	accuracy := distuv.Normal{Mu: validAccuracyMean, Sigma: validAccuracyStdDev, Src: s.rng}.Rand()

	return s.attemptLogin(now, episode{
		username: user,
		sourceIP: sourceIP,
		accuracy: accuracy,
		schedule: s.cfg.ValidUserSuccessProbs,
	})
}
