package timerjitter

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultIterations is the number of timer fires measured per configuration.
const DefaultIterations = 100

// firstFireDelay arms the timer to fire almost immediately.
const firstFireDelay = 100 * time.Nanosecond

// Harness measures the interval between consecutive fires of a periodic
// kernel timer and reports the mean per configuration.
type Harness struct {
	iterations int
	log        logrus.FieldLogger
	newTimer   TimerFactory
}

// Option configures a Harness.
type Option func(*Harness)

// WithIterations sets the number of timer fires measured per configuration.
func WithIterations(n int) Option {
	return func(h *Harness) {
		if n >= 0 {
			h.iterations = n
		}
	}
}

// WithLogger sets the logger used for progress, results and failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Harness) {
		h.log = log
	}
}

// WithTimerFactory replaces the OS timer object, e.g. for tests.
func WithTimerFactory(f TimerFactory) Option {
	return func(h *Harness) {
		h.newTimer = f
	}
}

// NewHarness returns a Harness with DefaultIterations, the standard logrus
// logger and the platform's periodic timer.
func NewHarness(opts ...Option) *Harness {
	h := &Harness{
		iterations: DefaultIterations,
		log:        logrus.StandardLogger(),
		newTimer:   NewPeriodicTimer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Iterations returns the configured number of measured fires.
func (h *Harness) Iterations() int {
	return h.iterations
}

// Result is the outcome of one configuration run. Latencies are the
// intervals between consecutive timer fires, in milliseconds.
type Result struct {
	Config     TimerConfig
	Iterations int
	Completed  int
	MeanMs     float64
	MinMs      float64
	MaxMs      float64
	StdDevMs   float64
	// Err is the failure that ended the run early, if any.
	Err error
}

// HasData reports whether at least one interval was measured.
func (r Result) HasData() bool {
	return r.Completed > 0
}

// latencyAccumulator sums per-iteration microseconds for one run.
type latencyAccumulator struct {
	sumMicros int64
	count     int
	samples   []float64
}

func (a *latencyAccumulator) add(micros int64) {
	a.sumMicros += micros
	a.count++
	a.samples = append(a.samples, float64(micros)/1000)
}

func (a *latencyAccumulator) summarize(r *Result) {
	r.Completed = a.count
	if a.count == 0 {
		return
	}
	r.MeanMs = float64(a.sumMicros) / float64(a.count) / 1000
	s := Summarize(a.samples)
	r.MinMs, r.MaxMs, r.StdDevMs = s.Min, s.Max, s.StdDev
}

// Run measures cfg on the calling goroutine, which is pinned to its OS thread
// for the duration of the run. Failures are logged and returned in
// Result.Err; they never panic. Cancelling ctx ends the run after the
// current wait with ctx.Err() in Result.Err.
func (h *Harness) Run(ctx context.Context, cfg TimerConfig) Result {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := h.log.WithField("test", cfg.Name)
	log.Infof("Running test %s with flags=0x%x (%v) and interval=%dms", cfg.Name, uint32(cfg.Flags), cfg.Flags, cfg.PeriodMs())

	res := Result{Config: cfg, Iterations: h.iterations}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid timer configuration")
		res.Err = err
		return res
	}

	timer, err := h.newTimer(cfg.Flags)
	if err != nil {
		logOSFailure(log, err, "creating timer")
		res.Err = err
		return res
	}
	defer func() {
		if err := timer.Cancel(); err != nil {
			logOSFailure(log, err, "cancelling timer")
		}
		if err := timer.Close(); err != nil {
			logOSFailure(log, err, "closing timer")
		}
	}()

	if err := timer.Arm(firstFireDelay, cfg.Period); err != nil {
		logOSFailure(log, err, "arming timer")
		res.Err = err
		return res
	}

	acc := latencyAccumulator{samples: make([]float64, 0, h.iterations)}
	sw := NewStopwatch()
	sw.Start()
	for range h.iterations {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("run interrupted")
			res.Err = err
			break
		}
		if err := timer.Wait(); err != nil {
			logOSFailure(log, err, "waiting for timer")
			res.Err = err
			break
		}
		acc.add(sw.ElapsedMicroseconds())
		sw.Reset()
	}
	sw.Stop()

	acc.summarize(&res)
	if !res.HasData() {
		log.Warnf("After %d iterations, no data", res.Completed)
		return res
	}
	log.WithFields(logrus.Fields{
		"min_ms":    res.MinMs,
		"max_ms":    res.MaxMs,
		"stddev_ms": res.StdDevMs,
	}).Infof("After %d iterations, average wait time is %f ms", res.Completed, res.MeanMs)
	return res
}

// RunAll runs each configuration in order on the calling goroutine. Once
// ctx is cancelled the remaining configurations are skipped and only the
// results of the attempted ones are returned.
func (h *Harness) RunAll(ctx context.Context, cfgs []TimerConfig) []Result {
	results := make([]Result, 0, len(cfgs))
	for i, cfg := range cfgs {
		if ctx.Err() != nil {
			h.log.WithField("skipped", len(cfgs)-i).Warn("interrupted, skipping remaining configurations")
			break
		}
		results = append(results, h.Run(ctx, cfg))
	}
	return results
}

func logOSFailure(log logrus.FieldLogger, err error, msg string) {
	log.WithError(err).WithField("code", formatCode(err)).Error(msg)
}
