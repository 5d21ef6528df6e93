//go:build windows

package timerjitter

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// CREATE_WAITABLE_TIMER_HIGH_RESOLUTION, Windows 10 1803 and later.
const createWaitableTimerHighResolution = 0x00000002

var (
	procCreateWaitableTimerExW = modkernel32.NewProc("CreateWaitableTimerExW")
	procSetWaitableTimer       = modkernel32.NewProc("SetWaitableTimer")
	procCancelWaitableTimer    = modkernel32.NewProc("CancelWaitableTimer")

	modwinmm            = windows.NewLazySystemDLL("winmm.dll")
	procTimeBeginPeriod = modwinmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = modwinmm.NewProc("timeEndPeriod")
)

type waitableTimer struct {
	handle       windows.Handle
	systemPeriod bool
}

func newPlatformTimer(flags ResolutionFlags) (PeriodicTimer, error) {
	var createFlags uintptr
	if flags&FlagHighResolution != 0 {
		createFlags |= createWaitableTimerHighResolution
	}
	t := &waitableTimer{}
	if flags&FlagSystemTimerPeriod != 0 {
		// timeBeginPeriod returns TIMERR_NOERROR (0) on success.
		if r1, _, _ := procTimeBeginPeriod.Call(1); r1 != 0 {
			return nil, &OSError{Op: "timeBeginPeriod", Err: windows.Errno(r1)}
		}
		t.systemPeriod = true
	}
	r1, _, err := procCreateWaitableTimerExW.Call(0, 0, createFlags, windows.TIMER_ALL_ACCESS)
	if r1 == 0 {
		t.endPeriod()
		return nil, &OSError{Op: "CreateWaitableTimerExW", Err: err}
	}
	t.handle = windows.Handle(r1)
	return t, nil
}

func (t *waitableTimer) Arm(due, period time.Duration) error {
	// Negative due times are relative, in 100ns units.
	dueTime := -int64(due / 100)
	if dueTime == 0 {
		dueTime = -1
	}
	r1, _, err := procSetWaitableTimer.Call(uintptr(t.handle), uintptr(unsafe.Pointer(&dueTime)),
		uintptr(period.Milliseconds()), 0, 0, 0)
	if r1 == 0 {
		return &OSError{Op: "SetWaitableTimer", Err: err}
	}
	return nil
}

func (t *waitableTimer) Wait() error {
	if t.handle == 0 {
		return ErrTimerClosed
	}
	event, err := windows.WaitForSingleObject(t.handle, windows.INFINITE)
	if err != nil {
		return &OSError{Op: "WaitForSingleObject", Err: err}
	}
	if event != windows.WAIT_OBJECT_0 {
		return &OSError{Op: "WaitForSingleObject", Err: windows.Errno(event)}
	}
	return nil
}

func (t *waitableTimer) Cancel() error {
	if t.handle == 0 {
		return nil
	}
	if r1, _, err := procCancelWaitableTimer.Call(uintptr(t.handle)); r1 == 0 {
		return &OSError{Op: "CancelWaitableTimer", Err: err}
	}
	return nil
}

func (t *waitableTimer) Close() error {
	defer t.endPeriod()
	if t.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(t.handle)
	t.handle = 0
	if err != nil {
		return &OSError{Op: "CloseHandle", Err: err}
	}
	return nil
}

func (t *waitableTimer) endPeriod() {
	if t.systemPeriod {
		procTimeEndPeriod.Call(1)
		t.systemPeriod = false
	}
}
