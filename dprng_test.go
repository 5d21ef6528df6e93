package timerjitter

import (
	"context"
	"testing"

	set3 "github.com/TomTonic/Set3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDPRNGSeeds(t *testing.T) {
	assert.Equal(t, uint64(42), NewDPRNG(42).State)
	for range 100 {
		assert.NotZero(t, NewDPRNG(0).State, "a zero state would lock xorshift at zero")
	}
}

func TestDPRNGRoundCountsDraws(t *testing.T) {
	rng := NewDPRNG(0x1234567890ABCDEF)
	for range 1_000 {
		rng.Uint64()
	}
	assert.Equal(t, uint64(1_000), rng.Round)
}

func TestCountdownMixingIsDeterministic(t *testing.T) {
	g := NewCPUHeavyGenerator(WithCountdown(10_000))
	ctx := context.Background()

	a, b := NewDPRNG(0x1234567890ABCDEF), NewDPRNG(0x1234567890ABCDEF)
	va, _ := g.countdownRound(ctx, &a)
	vb, _ := g.countdownRound(ctx, &b)
	assert.Equal(t, va, vb, "same seed, same countdown result")
	assert.Equal(t, a.State, b.State)

	// The next countdown continues the sequence rather than repeating it.
	next, _ := g.countdownRound(ctx, &a)
	assert.NotEqual(t, va, next)
	assert.Equal(t, uint64(20_000), a.Round)
}

func TestCountdownResultsDifferAcrossSeeds(t *testing.T) {
	g := NewCPUHeavyGenerator(WithCountdown(1_000))
	ctx := context.Background()
	const seeds = 2_000
	seen := set3.EmptyWithCapacity[uint64](seeds)
	for seed := uint64(1); seed <= seeds; seed++ {
		rng := NewDPRNG(seed)
		v, done := g.countdownRound(ctx, &rng)
		require.True(t, done)
		assert.NotZero(t, v, "seed %d fed a zero into the sink", seed)
		seen.Add(v)
	}
	assert.Equal(t, uint32(seeds), seen.Size(), "countdown results collide across seeds")
}
