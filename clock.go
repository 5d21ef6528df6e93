package timerjitter

import "math"

// Clock wraps the platform's monotonic high-resolution counter together with
// its calibration frequency. The frequency is captured once in NewClock and
// stays constant for the lifetime of the Clock.
type Clock struct {
	frequency int64
}

// NewClock returns a Clock calibrated against the platform counter.
// It panics if the platform refuses to report a frequency, as nothing in this
// package can measure anything without one.
func NewClock() *Clock {
	return &Clock{frequency: counterFrequency()}
}

// Frequency returns the number of ticks per second.
func (c *Clock) Frequency() int64 {
	return c.frequency
}

// Ticks returns the current raw tick count. The values are only comparable
// with other values obtained from the same Clock within the same process.
func (c *Clock) Ticks() int64 {
	return counterTicks()
}

// TicksToMilliseconds converts a tick delta to milliseconds, truncating.
func (c *Clock) TicksToMilliseconds(ticks int64) int64 {
	return ticks / (c.frequency / 1_000)
}

// TicksToMicroseconds converts a tick delta to microseconds, truncating.
func (c *Clock) TicksToMicroseconds(ticks int64) int64 {
	return ticks / (c.frequency / 1_000_000)
}

// Precision samples the counter back to back and returns the smallest
// non-zero difference observed, in nanoseconds. It returns 0 if no
// difference was observed within the given number of samples.
func (c *Clock) Precision(samples int) int64 {
	minDiff := int64(math.MaxInt64)
	for range samples {
		t1 := c.Ticks()
		t2 := c.Ticks()
		diff := t2 - t1
		if diff > 0 && diff < minDiff {
			minDiff = diff
		}
	}
	if minDiff == math.MaxInt64 {
		return 0
	}
	return minDiff * 1_000_000_000 / c.frequency
}
