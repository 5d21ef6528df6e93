package timerjitter

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultIdleSlice is the sleep between wake-ups of the idle generator.
	DefaultIdleSlice = time.Millisecond
	// DefaultCountdown is the length of one busy countdown of the CPU-heavy
	// generator, about the span of a 32-bit signed integer.
	DefaultCountdown = math.MaxUint32
)

// LoadGenerator is a background workload that creates scheduler pressure
// while timers are being measured. It runs on its own pinned OS thread.
type LoadGenerator struct {
	name      string
	log       logrus.FieldLogger
	slice     time.Duration
	countdown uint64
	seed      uint64
	work      func(ctx context.Context, g *LoadGenerator)

	rounds atomic.Uint64
	sink   atomic.Uint64
}

// LoadOption configures a LoadGenerator.
type LoadOption func(*LoadGenerator)

// WithLoadLogger sets the generator's logger.
func WithLoadLogger(log logrus.FieldLogger) LoadOption {
	return func(g *LoadGenerator) {
		g.log = log
	}
}

// WithIdleSlice sets the sleep of the idle generator.
func WithIdleSlice(d time.Duration) LoadOption {
	return func(g *LoadGenerator) {
		if d > 0 {
			g.slice = d
		}
	}
}

// WithCountdown sets the length of one busy countdown of the CPU-heavy generator.
func WithCountdown(n uint64) LoadOption {
	return func(g *LoadGenerator) {
		if n > 0 {
			g.countdown = n
		}
	}
}

// WithSeed seeds the CPU-heavy generator's mixing function. 0 picks a random seed.
func WithSeed(seed uint64) LoadOption {
	return func(g *LoadGenerator) {
		g.seed = seed
	}
}

func newLoadGenerator(name string, work func(context.Context, *LoadGenerator), opts []LoadOption) *LoadGenerator {
	g := &LoadGenerator{
		name:      name,
		log:       logrus.StandardLogger(),
		slice:     DefaultIdleSlice,
		countdown: DefaultCountdown,
		work:      work,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewIdleGenerator returns a generator that is runnable but mostly waiting:
// it sleeps for a short fixed slice in a tight loop.
func NewIdleGenerator(opts ...LoadOption) *LoadGenerator {
	return newLoadGenerator("idle", idleLoop, opts)
}

// NewCPUHeavyGenerator returns a generator that saturates one core with a
// pure-CPU countdown and never yields inside a countdown.
func NewCPUHeavyGenerator(opts ...LoadOption) *LoadGenerator {
	return newLoadGenerator("cpu-heavy", busyLoop, opts)
}

// Name returns the generator's thread label.
func (g *LoadGenerator) Name() string {
	return g.name
}

// Rounds returns how many sleeps (idle) or countdowns (CPU-heavy) completed.
func (g *LoadGenerator) Rounds() uint64 {
	return g.rounds.Load()
}

// Run registers the calling thread in reg and runs the workload until ctx
// is cancelled. In the command this is the lifetime of the process.
func (g *LoadGenerator) Run(ctx context.Context, reg *ThreadRegistry) error {
	RegisterCurrentThread(reg, g.name, g.log)
	g.work(ctx, g)
	return nil
}

func idleLoop(ctx context.Context, g *LoadGenerator) {
	for ctx.Err() == nil {
		time.Sleep(g.slice)
		g.rounds.Add(1)
	}
}

// cancelCheckMask sets how often a countdown polls for cancellation,
// every 2^20 iterations or about a millisecond of work.
const cancelCheckMask = 1<<20 - 1

func busyLoop(ctx context.Context, g *LoadGenerator) {
	rng := NewDPRNG(g.seed)
	for ctx.Err() == nil {
		acc, done := g.countdownRound(ctx, &rng)
		g.sink.Store(acc)
		if !done {
			return
		}
		n := g.rounds.Add(1)
		g.log.WithField("round", n).Debug("countdown complete")
	}
}

// countdownRound runs one countdown with no suspension points. It reports
// false if ctx was cancelled before the countdown finished.
func (g *LoadGenerator) countdownRound(ctx context.Context, rng *DPRNG) (uint64, bool) {
	var acc uint64
	for i := g.countdown; i > 0; i-- {
		acc ^= rng.Uint64()
		if i&cancelCheckMask == 0 && ctx.Err() != nil {
			return acc, false
		}
	}
	return acc, true
}
