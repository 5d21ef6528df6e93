//go:build linux

package timerjitter

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CLOCK_MONOTONIC reports nanoseconds, so the frequency is fixed.
func counterFrequency() int64 {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(fmt.Sprintf("clock_getres(CLOCK_MONOTONIC) failed: %v", err))
	}
	return 1_000_000_000
}

func counterTicks() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(fmt.Sprintf("clock_gettime(CLOCK_MONOTONIC) failed: %v", err))
	}
	return ts.Nano()
}
