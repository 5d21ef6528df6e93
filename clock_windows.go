//go:build windows

package timerjitter

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	procFreq    = modkernel32.NewProc("QueryPerformanceFrequency")
	procCounter = modkernel32.NewProc("QueryPerformanceCounter")
)

// counterFrequency returns the QPC frequency in ticks per second.
func counterFrequency() int64 {
	var freq int64
	r1, _, err := procFreq.Call(uintptr(unsafe.Pointer(&freq)))
	if r1 == 0 || freq == 0 {
		panic(fmt.Sprintf("QueryPerformanceFrequency failed: %v", err))
	}
	return freq
}

func counterTicks() int64 {
	var qpc int64
	r1, _, err := procCounter.Call(uintptr(unsafe.Pointer(&qpc)))
	if r1 == 0 {
		panic(fmt.Sprintf("QueryPerformanceCounter failed: %v", err))
	}
	return qpc
}
