package simulator

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/telhawk-systems/authsim/internal/models"
)

// LockoutPolicy selects how locked accounts are released.
type LockoutPolicy string

const (
	// LockoutLegacy never expires locks; after every episode a fair coin flip
	// releases the most recently locked account, whichever it is. This is the default.
	LockoutLegacy LockoutPolicy = "legacy"

	// LockoutCooldown locks an account until a per-account expiry and releases it
	// only when that same account is evaluated after the expiry.
	LockoutCooldown LockoutPolicy = "cooldown"
)

// DefaultLockoutDuration is the cooldown applied when none is configured.
const DefaultLockoutDuration = 15 * time.Minute

// ParseLockoutPolicy validates a policy name. The empty string selects legacy.
func ParseLockoutPolicy(s string) (LockoutPolicy, error) {
	switch LockoutPolicy(s) {
	case "", LockoutLegacy:
		return LockoutLegacy, nil
	case LockoutCooldown:
		return LockoutCooldown, nil
	default:
		return "", fmt.Errorf("unknown lockout policy %q: %w", s, models.ErrInvalidInput)
	}
}

// LockoutConfig configures account lockout.
type LockoutConfig struct {
	Policy   LockoutPolicy
	Duration time.Duration
}

// lockedAccounts tracks locked usernames. Only the login state machine mutates it.
type lockedAccounts struct {
	policy   LockoutPolicy
	duration time.Duration
	expiry   map[string]time.Time
	order    []string // lock order, oldest first
}

func newLockedAccounts(cfg LockoutConfig) *lockedAccounts {
	policy := cfg.Policy
	if policy == "" {
		policy = LockoutLegacy
	}
	duration := cfg.Duration
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return &lockedAccounts{
		policy:   policy,
		duration: duration,
		expiry:   make(map[string]time.Time),
	}
}

// isLocked reports whether username is locked at now. Under the cooldown policy an
// expired lock on username is released here.
func (l *lockedAccounts) isLocked(username string, now time.Time) bool {
	until, ok := l.expiry[username]
	if !ok {
		return false
	}
	if l.policy == LockoutCooldown && !now.Before(until) {
		l.remove(username)
		return false
	}
	return true
}

// lock marks username locked from now on. Re-locking refreshes the expiry.
func (l *lockedAccounts) lock(username string, now time.Time) {
	if _, ok := l.expiry[username]; ok {
		l.remove(username)
	}
	l.expiry[username] = now.Add(l.duration)
	l.order = append(l.order, username)
}

// afterEpisode runs the release step that follows every episode.
func (l *lockedAccounts) afterEpisode(username string, now time.Time, rng *rand.Rand) {
	switch l.policy {
	case LockoutLegacy:
		if rng.Float64() < 0.5 && len(l.order) > 0 {
			l.remove(l.order[len(l.order)-1])
		}
	default:
		l.isLocked(username, now)
	}
}

func (l *lockedAccounts) remove(username string) {
	delete(l.expiry, username)
	if i := slices.Index(l.order, username); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
}

// Len returns how many accounts are currently tracked as locked.
func (l *lockedAccounts) Len() int {
	return len(l.expiry)
}
