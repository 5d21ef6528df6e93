package timerjitter

import (
	"fmt"
	"runtime"
	"time"
)

// ThreadHandle identifies one OS thread. Handles are comparable and remain
// valid map keys for the lifetime of the process, even after the thread
// itself has exited; queries against an exited thread fail instead.
type ThreadHandle struct {
	t *osThread
}

// ID returns the OS thread identifier.
func (h ThreadHandle) ID() int64 {
	if h.t == nil {
		return 0
	}
	return h.t.id()
}

// Name returns the label given at registration.
func (h ThreadHandle) Name() string {
	if h.t == nil {
		return ""
	}
	return h.t.name
}

func (h ThreadHandle) String() string {
	return fmt.Sprintf("%s(tid=%d)", h.Name(), h.ID())
}

// CurrentThread pins the calling goroutine to its OS thread and returns a
// handle for that thread. The goroutine stays pinned until it exits; when it
// does, the Go runtime terminates the thread and the handle goes stale.
func CurrentThread(name string) (ThreadHandle, error) {
	runtime.LockOSThread()
	t, err := openCurrentThread(name)
	if err != nil {
		runtime.UnlockOSThread()
		return ThreadHandle{}, err
	}
	return ThreadHandle{t: t}, nil
}

// ThreadTimingSnapshot is one sampling of a thread's CPU accounting.
type ThreadTimingSnapshot struct {
	Handle     ThreadHandle
	UserTime   time.Duration
	KernelTime time.Duration
	Cycles     uint64
	// CyclesErr is set when the cycle counter could not be read.
	CyclesErr error
}

// ThreadSampler queries cumulative CPU accounting of registered threads.
type ThreadSampler interface {
	// Times returns cumulative user and kernel CPU time since thread creation.
	Times(h ThreadHandle) (user, kernel time.Duration, err error)
	// Cycles returns the cumulative CPU cycle count of the thread.
	Cycles(h ThreadHandle) (uint64, error)
}

// FormatHMSms renders d as hours, minutes, seconds and milliseconds, e.g. "0h1m2s345ms".
func FormatHMSms(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%dh%dm%ds%dms", h, m, s, ms)
}
