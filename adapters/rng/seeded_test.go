package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSeeds(t *testing.T) {
	a := DeriveSeeds(1234, 10)
	b := DeriveSeeds(1234, 10)
	assert.Equal(t, a, b)
	assert.Equal(t, a[:5], DeriveSeeds(1234, 5))
	assert.NotEqual(t, a, DeriveSeeds(4321, 10))
}

func TestSeededStream(t *testing.T) {
	adapter := NewSeededAdapter()
	r1, err := adapter.SeededStream(context.Background(), "replicate-1", 7)
	require.NoError(t, err)
	r2, err := adapter.SeededStream(context.Background(), "other", 7)
	require.NoError(t, err)
	assert.Equal(t, r1.Int63(), r2.Int63())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = adapter.SeededStream(ctx, "replicate-1", 7)
	assert.Error(t, err)
}
