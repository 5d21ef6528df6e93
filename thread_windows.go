//go:build windows

package timerjitter

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	procGetThreadTimes       = modkernel32.NewProc("GetThreadTimes")
	procQueryThreadCycleTime = modkernel32.NewProc("QueryThreadCycleTime")
)

type osThread struct {
	name     string
	threadID uint32
	// handle is owned by the registering thread; the registry never closes it.
	handle windows.Handle
}

func (t *osThread) id() int64 {
	return int64(t.threadID)
}

func openCurrentThread(name string) (*osThread, error) {
	tid := windows.GetCurrentThreadId()
	h, err := windows.OpenThread(windows.THREAD_QUERY_LIMITED_INFORMATION|windows.SYNCHRONIZE, false, tid)
	if err != nil {
		return nil, &OSError{Op: "OpenThread", Err: err}
	}
	return &osThread{name: name, threadID: tid, handle: h}, nil
}

type win32Sampler struct{}

// NewThreadSampler returns the OS-backed ThreadSampler. On Windows it uses
// GetThreadTimes and QueryThreadCycleTime.
func NewThreadSampler() (ThreadSampler, error) {
	return win32Sampler{}, nil
}

func filetimeDuration(ft windows.Filetime) time.Duration {
	hundredNanos := int64(ft.HighDateTime)<<32 | int64(ft.LowDateTime)
	return time.Duration(hundredNanos * 100)
}

func (win32Sampler) Times(h ThreadHandle) (user, kernel time.Duration, err error) {
	if h.t == nil {
		return 0, 0, &OSError{Op: "GetThreadTimes", Err: windows.ERROR_INVALID_HANDLE}
	}
	var creation, exit, kernelFT, userFT windows.Filetime
	r1, _, e := procGetThreadTimes.Call(uintptr(h.t.handle),
		uintptr(unsafe.Pointer(&creation)), uintptr(unsafe.Pointer(&exit)),
		uintptr(unsafe.Pointer(&kernelFT)), uintptr(unsafe.Pointer(&userFT)))
	if r1 == 0 {
		return 0, 0, &OSError{Op: "GetThreadTimes", Err: e}
	}
	return filetimeDuration(userFT), filetimeDuration(kernelFT), nil
}

func (win32Sampler) Cycles(h ThreadHandle) (uint64, error) {
	if h.t == nil {
		return 0, &OSError{Op: "QueryThreadCycleTime", Err: windows.ERROR_INVALID_HANDLE}
	}
	var cycles uint64
	r1, _, e := procQueryThreadCycleTime.Call(uintptr(h.t.handle), uintptr(unsafe.Pointer(&cycles)))
	if r1 == 0 {
		return 0, &OSError{Op: "QueryThreadCycleTime", Err: e}
	}
	return cycles, nil
}
