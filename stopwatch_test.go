package timerjitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopwatchStartsStopped(t *testing.T) {
	sw := NewStopwatch()
	assert.False(t, sw.Running())
	assert.Equal(t, int64(0), sw.ElapsedMicroseconds())
	assert.Equal(t, int64(0), sw.ElapsedMilliseconds())
}

func TestStopwatchElapsedNonDecreasingWhileRunning(t *testing.T) {
	sw := NewStopwatch()
	sw.Start()
	assert.True(t, sw.Running())
	prev := sw.ElapsedMicroseconds()
	assert.True(t, prev >= 0, "elapsed right after Start must be >= 0, got %d", prev)
	for range 10_000 {
		now := sw.ElapsedMicroseconds()
		assert.True(t, now >= prev, "elapsed decreased: %d < %d", now, prev)
		prev = now
	}
}

func TestStopwatchFrozenAfterStop(t *testing.T) {
	sw := NewStopwatch()
	sw.Start()
	time.Sleep(20 * time.Millisecond)
	sw.Stop()
	assert.False(t, sw.Running())

	ms := sw.ElapsedMilliseconds()
	us := sw.ElapsedMicroseconds()
	assert.True(t, ms >= 20, "expected at least 20ms, got %d", ms)
	time.Sleep(10 * time.Millisecond)
	for range 100 {
		assert.Equal(t, ms, sw.ElapsedMilliseconds())
		assert.Equal(t, us, sw.ElapsedMicroseconds())
	}
}

func TestStopwatchSecondStopMovesEnd(t *testing.T) {
	sw := NewStopwatch()
	sw.Start()
	sw.Stop()
	first := sw.ElapsedMicroseconds()
	time.Sleep(5 * time.Millisecond)
	sw.Stop()
	second := sw.ElapsedMicroseconds()
	assert.True(t, second >= first+5_000, "second Stop should move the end tick: %d vs %d", second, first)
}

func TestStopwatchResetRestartsMeasurement(t *testing.T) {
	sw := NewStopwatch()
	sw.Start()
	time.Sleep(30 * time.Millisecond)
	sw.Stop()
	assert.True(t, sw.ElapsedMilliseconds() >= 30)

	sw.Reset()
	assert.True(t, sw.Running(), "Reset must leave the stopwatch running")
	assert.True(t, sw.ElapsedMilliseconds() < 30, "Reset must restart the measurement, got %dms", sw.ElapsedMilliseconds())
}

func TestStopwatchStartWhileRunningMovesStart(t *testing.T) {
	sw := NewStopwatch()
	sw.Start()
	time.Sleep(30 * time.Millisecond)
	sw.Start()
	assert.True(t, sw.Running())
	assert.True(t, sw.ElapsedMilliseconds() < 30, "Start while running must move the start tick")
}

func TestStopwatchAgreesWithSleep(t *testing.T) {
	sw := NewStopwatch()
	before := time.Now()
	sw.Start()
	time.Sleep(100 * time.Millisecond)
	sw.Stop()
	wall := time.Since(before)

	us := sw.ElapsedMicroseconds()
	assert.True(t, us >= 100_000, "expected at least 100ms, got %dus", us)
	assert.True(t, us <= wall.Microseconds(), "stopwatch %dus exceeds wall clock %v", us, wall)
	assert.True(t, sw.ElapsedMilliseconds() >= 100)
}
