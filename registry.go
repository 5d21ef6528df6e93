package timerjitter

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ThreadRegistry is an append-only, concurrency-safe collection of thread
// handles. Writers exclude each other and readers; readers share the lock.
//
// Entries are never removed, so the cost of a monitoring pass grows with
// the number of threads that have ever registered.
type ThreadRegistry struct {
	mu      sync.RWMutex
	handles []ThreadHandle
}

// NewThreadRegistry returns an empty registry.
func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{}
}

// Push appends h to the registry.
func (r *ThreadRegistry) Push(h ThreadHandle) {
	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()
}

// Snapshot returns a copy of the registered handles as of the moment the read
// lock was held. Pushes that complete after that moment are not visible.
func (r *ThreadRegistry) Snapshot() []ThreadHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ThreadHandle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Len returns the number of registered handles.
func (r *ThreadRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// RegisterCurrentThread pins the calling goroutine to its OS thread and pushes
// a handle for it. On failure the error is logged and the zero handle is
// returned; the caller keeps running unregistered.
func RegisterCurrentThread(reg *ThreadRegistry, name string, log logrus.FieldLogger) (ThreadHandle, bool) {
	h, err := CurrentThread(name)
	if err != nil {
		logOSFailure(log, err, "registering thread "+name)
		return ThreadHandle{}, false
	}
	reg.Push(h)
	log.WithField("thread", h).Debug("registered thread")
	return h, true
}
