package models

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// MinUsernameLength is the shortest username a pool accepts. Shorter names cannot be
// distorted.
const MinUsernameLength = 2

// IdentityPool maps each valid username to the source IPs it may log in from.
// It is read-only once built.
type IdentityPool struct {
	users map[string][]string
	names []string
}

// NewIdentityPool copies entries into a pool. Every username needs at least
// MinUsernameLength characters and at least one IP.
func NewIdentityPool(entries map[string][]string) (*IdentityPool, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("identity pool is empty: %w", ErrInvalidInput)
	}

	users := make(map[string][]string, len(entries))
	names := make([]string, 0, len(entries))
	for name, ips := range entries {
		if utf8.RuneCountInString(name) < MinUsernameLength {
			return nil, fmt.Errorf("username %q is shorter than %d characters: %w", name, MinUsernameLength, ErrInvalidInput)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("user %q has no IP addresses: %w", name, ErrInvalidInput)
		}
		users[name] = slices.Clone(ips)
		names = append(names, name)
	}
	slices.Sort(names)

	return &IdentityPool{users: users, names: names}, nil
}

// Usernames returns every username in sorted order.
func (p *IdentityPool) Usernames() []string {
	return slices.Clone(p.names)
}

// Len returns the number of users.
func (p *IdentityPool) Len() int {
	return len(p.names)
}

// Has reports whether username exists in the pool.
func (p *IdentityPool) Has(username string) bool {
	_, ok := p.users[username]
	return ok
}

// IPs returns the addresses assigned to username, nil when unknown.
func (p *IdentityPool) IPs(username string) []string {
	return slices.Clone(p.users[username])
}

// Snapshot returns a copy of the mapping suitable for serialization.
func (p *IdentityPool) Snapshot() map[string][]string {
	out := make(map[string][]string, len(p.users))
	for name, ips := range p.users {
		out[name] = slices.Clone(ips)
	}
	return out
}
