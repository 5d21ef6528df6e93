package timerjitter

import (
	"errors"
	"fmt"
	"syscall"
)

// Errors returned by the timer and thread accounting layers.
var (
	// ErrInvalidFlags is returned when a timer is requested with bits outside the known ResolutionFlags.
	ErrInvalidFlags = errors.New("timerjitter: invalid resolution flags")

	// ErrUnsupportedFlags is returned when the platform cannot honor a known resolution flag.
	ErrUnsupportedFlags = errors.New("timerjitter: resolution flags not supported on this platform")

	// ErrInvalidPeriod is returned for timer periods below one millisecond or not a whole number of milliseconds.
	ErrInvalidPeriod = errors.New("timerjitter: timer period must be a whole number of milliseconds >= 1ms")

	// ErrTimerClosed is returned when waiting on a timer that has been closed.
	ErrTimerClosed = errors.New("timerjitter: timer closed")

	// ErrTimerNotArmed is returned when waiting on a timer that was never armed or has been cancelled.
	ErrTimerNotArmed = errors.New("timerjitter: timer not armed")

	// ErrUnsupported is returned when per-thread accounting is not available on this platform.
	ErrUnsupported = errors.New("timerjitter: not supported on this platform")
)

// OSError carries the failing OS call and its error code.
type OSError struct {
	Op  string
	Err error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s failed: %v (code=0x%x)", e.Op, e.Err, ErrorCode(e.Err))
}

func (e *OSError) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the numeric OS error code from err, or 0 if there is none.
func ErrorCode(err error) uintptr {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uintptr(errno)
	}
	return 0
}

func formatCode(err error) string {
	return fmt.Sprintf("0x%x", ErrorCode(err))
}
