// Package rng implements ports.RNGPort with math/rand sources.
package rng

import (
	"context"
	"math/rand"
)

// SeededAdapter hands out independent deterministic streams, one per seed.
type SeededAdapter struct{}

// NewSeededAdapter creates the adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named
// operation. The name only labels the stream; the seed alone decides it.
func (r *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(seed)), nil
}

// DeriveSeeds draws n replicate seeds from a master seed, all up front, so
// that replicate i always gets the same seed however replicates are
// scheduled.
func DeriveSeeds(master int64, n int) []int64 {
	src := rand.New(rand.NewSource(master))
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = src.Int63()
	}
	return seeds
}
