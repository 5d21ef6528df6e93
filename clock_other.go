//go:build !windows && !linux

package timerjitter

import "time"

// processStart anchors the monotonic reading of time.Now.
var processStart = time.Now()

func counterFrequency() int64 {
	return 1_000_000_000
}

func counterTicks() int64 {
	return int64(time.Since(processStart))
}
