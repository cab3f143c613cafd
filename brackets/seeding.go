package brackets

import (
	"errors"
	"math/rand"
)

// seedValue is fixed so seeding is a pure function of the team list. The
// seeded order can always be re-derived after a restart instead of being
// persisted.
const seedValue = 1

// ErrInvalidBracketSize is returned when the ready-team count is not a
// supported bracket size.
var ErrInvalidBracketSize = errors.New("team count must be 2, 4, 8, 16 or 32")

var validSizes = map[int]bool{2: true, 4: true, 8: true, 16: true, 32: true}

// ValidSize reports whether n teams can fill a bracket with no byes.
func ValidSize(n int) bool {
	return validSizes[n]
}

// Seed returns the bracket order for the given team names. The input must be
// in registration order (ascending team id) and is not modified; the same
// input always yields the same permutation.
func Seed(teams []string) ([]string, error) {
	if !ValidSize(len(teams)) {
		return nil, ErrInvalidBracketSize
	}

	seeds := make([]string, len(teams))
	copy(seeds, teams)

	rng := rand.New(rand.NewSource(seedValue))
	rng.Shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})
	return seeds, nil
}

// NumRounds returns the number of rounds a bracket of the given size plays.
// Size must already be validated.
func NumRounds(size int) int {
	rounds := 0
	for n := size; n > 1; n /= 2 {
		rounds++
	}
	return rounds
}
