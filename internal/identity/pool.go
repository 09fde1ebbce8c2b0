package identity

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Build assigns every username between 1 and maxIPs IPv4 addresses. Users are
// visited in sorted order with a faker seeded from seed, so the same inputs always
// yield the same pool.
func Build(usernames []string, maxIPs int, seed int64) (*models.IdentityPool, error) {
	if maxIPs < 1 {
		return nil, fmt.Errorf("max ips must be at least 1, got %d: %w", maxIPs, models.ErrInvalidInput)
	}

	names := slices.Clone(usernames)
	slices.Sort(names)
	names = slices.Compact(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("username universe is empty: %w", models.ErrInvalidInput)
	}

	faker := gofakeit.New(seed)
	entries := make(map[string][]string, len(names))
	for _, name := range names {
		if utf8.RuneCountInString(name) < models.MinUsernameLength {
			return nil, fmt.Errorf("username %q is shorter than %d characters: %w", name, models.MinUsernameLength, models.ErrInvalidInput)
		}

		count := faker.IntRange(1, maxIPs)
		ips := make([]string, 0, count)
		for len(ips) < count {
			ip := faker.IPv4Address()
			if !slices.Contains(ips, ip) {
				ips = append(ips, ip)
			}
		}
		entries[name] = ips
	}

	return models.NewIdentityPool(entries)
}
