//go:build !windows && !linux

package timerjitter

import (
	"sync/atomic"
	"time"
)

var nextThreadID atomic.Int64

type osThread struct {
	name     string
	threadID int64
}

func (t *osThread) id() int64 {
	return t.threadID
}

func openCurrentThread(name string) (*osThread, error) {
	return &osThread{name: name, threadID: nextThreadID.Add(1)}, nil
}

type unsupportedSampler struct{}

// NewThreadSampler returns a ThreadSampler whose queries fail with
// ErrUnsupported; per-thread accounting is only wired up for Linux and Windows.
func NewThreadSampler() (ThreadSampler, error) {
	return unsupportedSampler{}, nil
}

func (unsupportedSampler) Times(ThreadHandle) (time.Duration, time.Duration, error) {
	return 0, 0, ErrUnsupported
}

func (unsupportedSampler) Cycles(ThreadHandle) (uint64, error) {
	return 0, ErrUnsupported
}
