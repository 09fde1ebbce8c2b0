// Package identity builds the identity pool: the username universe and the source
// addresses each user logs in from.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/authsim/internal/models"
)

// DefaultRoles are the shared role accounts appended to every username universe.
var DefaultRoles = []string{"admin", "dba", "master"}

// LoadWordList reads one word per line. Blank lines and lines starting with # are skipped.
func LoadWordList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list %s: %w: %v", path, models.ErrIO, err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list %s: %w: %v", path, models.ErrIO, err)
	}
	return words, nil
}

// Usernames concatenates every first and last name pair, then appends roles.
// Duplicates are dropped, keeping the first occurrence.
func Usernames(first, last, roles []string) []string {
	out := make([]string, 0, len(first)*len(last)+len(roles))
	seen := make(map[string]struct{}, cap(out))

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	for _, f := range first {
		for _, l := range last {
			add(f + l)
		}
	}
	for _, r := range roles {
		add(r)
	}
	return out
}

// GeneratedNames draws n first names and n last names from faker. Spaces are
// stripped so the concatenated usernames stay single tokens.
func GeneratedNames(faker *gofakeit.Faker, n int) (first, last []string) {
	first = make([]string, 0, n)
	last = make([]string, 0, n)
	for i := 0; i < n; i++ {
		first = append(first, strings.ReplaceAll(faker.FirstName(), " ", ""))
		last = append(last, strings.ReplaceAll(faker.LastName(), " ", ""))
	}
	return compact(first), compact(last)
}

func compact(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	return slices.DeleteFunc(words, func(w string) bool {
		if _, ok := seen[w]; ok || w == "" {
			return true
		}
		seen[w] = struct{}{}
		return false
	})
}
