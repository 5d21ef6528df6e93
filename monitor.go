package timerjitter

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMonitorInterval is the cadence of the monitoring passes.
const DefaultMonitorInterval = time.Second

// Monitor periodically samples CPU accounting of every registered thread.
type Monitor struct {
	reg      *ThreadRegistry
	interval time.Duration
	sampler  ThreadSampler
	log      logrus.FieldLogger
	passes   chan<- []ThreadTimingSnapshot
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the time between monitoring passes.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithSampler replaces the OS-backed ThreadSampler.
func WithSampler(s ThreadSampler) MonitorOption {
	return func(m *Monitor) {
		m.sampler = s
	}
}

// WithMonitorLogger sets the logger the per-thread records are written to.
func WithMonitorLogger(log logrus.FieldLogger) MonitorOption {
	return func(m *Monitor) {
		m.log = log
	}
}

// WithPassSink delivers the snapshots of every completed pass to ch.
// Sends do not block; a pass is dropped if ch is full.
func WithPassSink(ch chan<- []ThreadTimingSnapshot) MonitorOption {
	return func(m *Monitor) {
		m.passes = ch
	}
}

// NewMonitor returns a Monitor over reg. Without WithSampler it uses
// NewThreadSampler.
func NewMonitor(reg *ThreadRegistry, opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{
		reg:      reg,
		interval: DefaultMonitorInterval,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sampler == nil {
		s, err := NewThreadSampler()
		if err != nil {
			return nil, err
		}
		m.sampler = s
	}
	return m, nil
}

// Run registers the calling thread and performs a pass every interval until
// ctx is cancelled. The monitor's own thread is part of what it observes.
func (m *Monitor) Run(ctx context.Context) error {
	RegisterCurrentThread(m.reg, "monitor", m.log)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snaps := m.SamplePass()
			if m.passes != nil {
				select {
				case m.passes <- snaps:
				default:
				}
			}
		}
	}
}

// SamplePass takes a registry snapshot and samples every handle in it.
// A thread whose CPU times cannot be read is logged once and left out of the
// result; the remaining threads are still sampled. A failing cycle query does
// not drop the thread, it is reported on the thread's record instead.
func (m *Monitor) SamplePass() []ThreadTimingSnapshot {
	handles := m.reg.Snapshot()
	out := make([]ThreadTimingSnapshot, 0, len(handles))
	for _, h := range handles {
		log := m.log.WithField("thread", h)
		user, kernel, err := m.sampler.Times(h)
		if err != nil {
			logOSFailure(log, err, "querying thread times")
			continue
		}
		snap := ThreadTimingSnapshot{Handle: h, UserTime: user, KernelTime: kernel}
		snap.Cycles, snap.CyclesErr = m.sampler.Cycles(h)

		cycles := "n/a"
		if snap.CyclesErr != nil {
			log = log.WithError(snap.CyclesErr).WithField("code", formatCode(snap.CyclesErr))
		} else {
			cycles = strconv.FormatUint(snap.Cycles, 10)
		}
		log.WithFields(logrus.Fields{
			"user":   FormatHMSms(snap.UserTime),
			"kernel": FormatHMSms(snap.KernelTime),
			"cycles": cycles,
		}).Info("thread times")
		out = append(out, snap)
	}
	return out
}
