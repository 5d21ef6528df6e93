package timerjitter

import (
	"runtime"
	"sync"
	"testing"

	set3 "github.com/TomTonic/Set3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spawnThreads starts n goroutines that each register their own OS thread
// via register and then block until release is closed. Keeping every thread
// alive until all have registered prevents the kernel from reusing ids.
func spawnThreads(t *testing.T, n int, register func() ThreadHandle) (handles []ThreadHandle, release func()) {
	t.Helper()
	var (
		mu      sync.Mutex
		started sync.WaitGroup
		done    = make(chan struct{})
	)
	started.Add(n)
	for range n {
		go func() {
			h := register()
			mu.Lock()
			handles = append(handles, h)
			mu.Unlock()
			started.Done()
			<-done
		}()
	}
	started.Wait()
	return handles, func() { close(done) }
}

func TestRegistryConcurrentPush(t *testing.T) {
	const n = 32
	reg := NewThreadRegistry()
	_, release := spawnThreads(t, n, func() ThreadHandle {
		h, err := CurrentThread("worker")
		assert.NoError(t, err)
		reg.Push(h)
		return h
	})
	defer release()

	snap := reg.Snapshot()
	require.Len(t, snap, n)
	assert.Equal(t, n, reg.Len())

	ids := set3.EmptyWithCapacity[int64](n * 2)
	seen := make(map[ThreadHandle]bool, n)
	for _, h := range snap {
		assert.NotZero(t, h.ID())
		assert.Equal(t, "worker", h.Name())
		assert.False(t, seen[h], "duplicate handle %v", h)
		seen[h] = true
		ids.Add(h.ID())
	}
	assert.Equal(t, uint32(n), ids.Size(), "thread ids must be unique")
}

func TestRegistrySnapshotDuringPush(t *testing.T) {
	const writers, perWriter = 8, 500
	reg := NewThreadRegistry()
	h, err := CurrentThread("self")
	require.NoError(t, err)
	defer runtime.UnlockOSThread()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var readerErr error
	var readerMu sync.Mutex
	var readers sync.WaitGroup
	for range 4 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			last := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := reg.Snapshot()
				for _, s := range snap {
					if s != h {
						readerMu.Lock()
						readerErr = assert.AnError
						readerMu.Unlock()
					}
				}
				if len(snap) < last {
					readerMu.Lock()
					readerErr = assert.AnError
					readerMu.Unlock()
				}
				last = len(snap)
			}
		}()
	}

	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWriter {
				reg.Push(h)
			}
		}()
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	assert.NoError(t, readerErr, "a snapshot observed a torn entry or shrank")
	assert.Equal(t, writers*perWriter, reg.Len())
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := NewThreadRegistry()
	h, err := CurrentThread("self")
	require.NoError(t, err)
	defer runtime.UnlockOSThread()

	reg.Push(h)
	snap := reg.Snapshot()
	reg.Push(h)
	assert.Len(t, snap, 1, "pushes after the snapshot must not show up in it")
	assert.Len(t, reg.Snapshot(), 2)
}

func TestRegisterCurrentThread(t *testing.T) {
	log, hook := test.NewNullLogger()
	reg := NewThreadRegistry()

	h, ok := RegisterCurrentThread(reg, "main", log)
	defer runtime.UnlockOSThread()
	require.True(t, ok)
	assert.Equal(t, "main", h.Name())
	assert.Equal(t, []ThreadHandle{h}, reg.Snapshot())
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "error", e.Level.String())
	}
}
