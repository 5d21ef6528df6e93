//go:build linux

package timerjitter

import (
	"encoding/binary"
	"os"
	"time"
	"unsafe"

	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

const fallbackClockTicks = 100

type osThread struct {
	name string
	pid  int
	tid  int
	// cycleFD is a perf_event counter bound to this thread, or -1.
	cycleFD  int
	cycleErr error
}

func (t *osThread) id() int64 {
	return int64(t.tid)
}

func openCurrentThread(name string) (*osThread, error) {
	t := &osThread{name: name, pid: os.Getpid(), tid: unix.Gettid(), cycleFD: -1}
	attr := unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Config: unix.PERF_COUNT_HW_CPU_CYCLES,
		Bits:   unix.PerfBitExcludeHv,
	}
	attr.Size = uint32(unsafe.Sizeof(attr))
	fd, err := unix.PerfEventOpen(&attr, t.tid, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		// Typically EACCES under perf_event_paranoid or ENOENT in VMs.
		t.cycleErr = &OSError{Op: "perf_event_open", Err: err}
		return t, nil
	}
	t.cycleFD = fd
	return t, nil
}

type procfsSampler struct {
	fs         procfs.FS
	clockTicks int64
}

// NewThreadSampler returns the OS-backed ThreadSampler. On Linux, CPU times
// come from /proc/<pid>/task/<tid>/stat and cycles from perf_event counters
// opened at registration.
func NewThreadSampler() (ThreadSampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, err
	}
	clktck, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clktck <= 0 {
		logrus.WithError(err).Warnf("sysconf(SC_CLK_TCK) failed, using fallback %d", fallbackClockTicks)
		clktck = fallbackClockTicks
	}
	return &procfsSampler{fs: fs, clockTicks: clktck}, nil
}

func (s *procfsSampler) Times(h ThreadHandle) (user, kernel time.Duration, err error) {
	if h.t == nil {
		return 0, 0, &OSError{Op: "stat", Err: unix.EBADF}
	}
	p, err := s.fs.Thread(h.t.pid, h.t.tid)
	if err != nil {
		return 0, 0, &OSError{Op: "open task", Err: err}
	}
	stat, err := p.Stat()
	if err != nil {
		return 0, 0, &OSError{Op: "read task stat", Err: err}
	}
	return s.ticksToDuration(uint64(stat.UTime)), s.ticksToDuration(uint64(stat.STime)), nil
}

func (s *procfsSampler) ticksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks * uint64(time.Second) / uint64(s.clockTicks))
}

func (s *procfsSampler) Cycles(h ThreadHandle) (uint64, error) {
	if h.t == nil {
		return 0, &OSError{Op: "read perf counter", Err: unix.EBADF}
	}
	if h.t.cycleFD < 0 {
		return 0, h.t.cycleErr
	}
	var buf [8]byte
	n, err := unix.Read(h.t.cycleFD, buf[:])
	if err != nil {
		return 0, &OSError{Op: "read perf counter", Err: err}
	}
	if n != len(buf) {
		return 0, &OSError{Op: "read perf counter", Err: unix.EIO}
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}
