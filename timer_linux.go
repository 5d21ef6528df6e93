//go:build linux

package timerjitter

import (
	"time"

	"golang.org/x/sys/unix"
)

// defaultTimerSlack is the kernel default for threads (50us).
const defaultTimerSlack = 50_000

// setTimerSlack sets the calling thread's timer slack in nanoseconds.
var setTimerSlack = func(ns int) error {
	return unix.Prctl(unix.PR_SET_TIMERSLACK, uintptr(ns), 0, 0, 0)
}

// sleepTimer fires on absolute CLOCK_MONOTONIC deadlines using
// clock_nanosleep(TIMER_ABSTIME). The sleep is an hrtimer that the kernel
// may defer by up to the thread's timer slack, so the slack of the waiting
// thread decides the resolution.
type sleepTimer struct {
	next   int64
	period int64
	armed  bool
	closed bool

	restoreSlack  bool
	previousSlack int
}

func newPlatformTimer(flags ResolutionFlags) (PeriodicTimer, error) {
	if flags&FlagSystemTimerPeriod != 0 {
		return nil, ErrUnsupportedFlags
	}
	t := &sleepTimer{}
	if flags&FlagHighResolution != 0 {
		prev, err := unix.PrctlRetInt(unix.PR_GET_TIMERSLACK, 0, 0, 0, 0)
		if err != nil {
			return nil, &OSError{Op: "prctl(PR_GET_TIMERSLACK)", Err: err}
		}
		if err := setTimerSlack(1); err != nil {
			return nil, &OSError{Op: "prctl(PR_SET_TIMERSLACK)", Err: err}
		}
		t.restoreSlack = true
		t.previousSlack = prev
	}
	return t, nil
}

func monotonicNow() (int64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, &OSError{Op: "clock_gettime", Err: err}
	}
	return ts.Nano(), nil
}

func (t *sleepTimer) Arm(due, period time.Duration) error {
	if t.closed {
		return ErrTimerClosed
	}
	if due < 0 || period <= 0 {
		return &OSError{Op: "arm timer", Err: unix.EINVAL}
	}
	now, err := monotonicNow()
	if err != nil {
		return err
	}
	t.next = now + int64(due)
	t.period = int64(period)
	t.armed = true
	return nil
}

// Wait sleeps until the next deadline. Deadlines that passed while the
// caller was busy are coalesced into one fire, like the expiration count
// of a kernel interval timer.
func (t *sleepTimer) Wait() error {
	if t.closed {
		return ErrTimerClosed
	}
	if !t.armed {
		return ErrTimerNotArmed
	}
	deadline := unix.NsecToTimespec(t.next)
	for {
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &deadline, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return &OSError{Op: "clock_nanosleep", Err: err}
		}
		break
	}
	now, err := monotonicNow()
	if err != nil {
		return err
	}
	for t.next <= now {
		t.next += t.period
	}
	return nil
}

func (t *sleepTimer) Cancel() error {
	t.armed = false
	return nil
}

// Close restores the thread's timer slack if the timer lowered it.
func (t *sleepTimer) Close() error {
	t.armed = false
	t.closed = true
	return t.resetSlack()
}

func (t *sleepTimer) resetSlack() error {
	if !t.restoreSlack {
		return nil
	}
	t.restoreSlack = false
	slack := t.previousSlack
	if slack <= 0 {
		slack = defaultTimerSlack
	}
	if err := setTimerSlack(slack); err != nil {
		return &OSError{Op: "prctl(PR_SET_TIMERSLACK)", Err: err}
	}
	return nil
}
