package simulator

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Distort returns a single-character edit of username: with even odds the character at a
// random index in [0, len-1) is deleted, otherwise a random lowercase letter is inserted
// there. Usernames shorter than two characters cannot be distorted.
func Distort(rng *rand.Rand, username string) (string, error) {
	runes := []rune(username)
	if len(runes) < 2 {
		return "", fmt.Errorf("distort %q: need at least 2 characters: %w", username, models.ErrInvalidInput)
	}

	i := rng.IntN(len(runes) - 1)
	if rng.Float64() < 0.5 {
		return string(slices.Delete(runes, i, i+1)), nil
	}

	letter := rune('a' + rng.IntN(26))
	return string(slices.Insert(runes, i, letter)), nil
}
