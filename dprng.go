package timerjitter

import "math/rand/v2"

// DPRNG is a Deterministic Pseudo-Random Number Generator based on the xorshift* algorithm
// (see https://en.wikipedia.org/wiki/Xorshift#xorshift*).
// It has a period of 2^64-1 and a constant, branch-free runtime per call, which makes it
// a suitable body for a CPU-saturating loop the compiler cannot elide.
// It is not cryptographically secure and not thread-safe.
// The state must not be zero.
type DPRNG struct {
	State uint64
	Round uint64 // for debugging purposes
}

// NewDPRNG returns a DPRNG seeded with seed, or with a random non-zero seed if seed is 0.
func NewDPRNG(seed uint64) DPRNG {
	for seed == 0 {
		seed = rand.Uint64()
	}
	return DPRNG{State: seed}
}

// Uint64 returns the next pseudo-random number in the sequence.
func (thisState *DPRNG) Uint64() uint64 {
	x := thisState.State
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	thisState.State = x
	thisState.Round++
	return x * 0x2545F4914F6CDD1D
}
