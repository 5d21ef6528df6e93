package timerjitter

import (
	"fmt"
	"strings"
	"time"
)

// ResolutionFlags selects how the OS should service a periodic timer.
// The zero value requests the platform default.
type ResolutionFlags uint32

const (
	// FlagHighResolution asks for a finer-than-default timer resolution for this
	// timer object only. On Windows this is CREATE_WAITABLE_TIMER_HIGH_RESOLUTION.
	// On Linux the timer sleeps on absolute deadlines and the flag lowers the
	// measuring thread's timer slack to 1ns, so the kernel no longer defers
	// the wake-up by up to the default 50us.
	FlagHighResolution ResolutionFlags = 1 << iota

	// FlagSystemTimerPeriod raises the system-wide timer frequency while the timer
	// exists (timeBeginPeriod(1) on Windows).
	FlagSystemTimerPeriod

	knownFlags = FlagHighResolution | FlagSystemTimerPeriod
)

// FlagsDefault is the platform default configuration.
const FlagsDefault ResolutionFlags = 0

// Valid reports whether f only contains known bits.
func (f ResolutionFlags) Valid() bool {
	return f&^knownFlags == 0
}

func (f ResolutionFlags) String() string {
	if f == FlagsDefault {
		return "default"
	}
	var names []string
	if f&FlagHighResolution != 0 {
		names = append(names, "high-resolution")
	}
	if f&FlagSystemTimerPeriod != 0 {
		names = append(names, "system-timer-period")
	}
	if rest := f &^ knownFlags; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// TimerConfig describes one trial configuration of the latency harness.
type TimerConfig struct {
	Name   string
	Flags  ResolutionFlags
	Period time.Duration
}

// Validate checks that the period is a whole number of milliseconds of at least 1ms.
func (c TimerConfig) Validate() error {
	if c.Period < time.Millisecond || c.Period%time.Millisecond != 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPeriod, c.Period)
	}
	return nil
}

// PeriodMs returns the period in whole milliseconds.
func (c TimerConfig) PeriodMs() int64 {
	return c.Period.Milliseconds()
}

// PeriodicTimer is a kernel timer object that signals repeatedly once armed.
// A PeriodicTimer is used by a single goroutine.
type PeriodicTimer interface {
	// Arm schedules the first signal after due and then one every period.
	Arm(due, period time.Duration) error
	// Wait blocks without timeout until the timer signals.
	Wait() error
	// Cancel disarms the timer.
	Cancel() error
	// Close releases the timer object.
	Close() error
}

// TimerFactory creates a PeriodicTimer honoring the given flags.
type TimerFactory func(flags ResolutionFlags) (PeriodicTimer, error)

// NewPeriodicTimer creates the platform's periodic timer object.
// Creation must happen on the goroutine that will Wait on the timer, since
// some flags adjust per-thread scheduler state.
func NewPeriodicTimer(flags ResolutionFlags) (PeriodicTimer, error) {
	if !flags.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlags, flags)
	}
	return newPlatformTimer(flags)
}

// Names accepted by ParseTimerConfig.
const (
	ConfigDefault          = "default"
	ConfigHighResolution   = "highres"
	ConfigSystemTimePeriod = "sysperiod"
)

// PresetNames lists the built-in configurations in the order they are run.
var PresetNames = []string{ConfigDefault, ConfigHighResolution, ConfigSystemTimePeriod}

// ParseTimerConfig returns the built-in configuration called name with the given period.
func ParseTimerConfig(name string, period time.Duration) (TimerConfig, error) {
	var cfg TimerConfig
	switch strings.ToLower(name) {
	case ConfigDefault:
		cfg = TimerConfig{Name: "Default", Flags: FlagsDefault}
	case ConfigHighResolution:
		cfg = TimerConfig{Name: "HighResolutionFlag", Flags: FlagHighResolution}
	case ConfigSystemTimePeriod:
		cfg = TimerConfig{Name: "SystemTimerPeriod", Flags: FlagSystemTimerPeriod}
	default:
		return TimerConfig{}, fmt.Errorf("unknown timer configuration %q (want one of %s)", name, strings.Join(PresetNames, ", "))
	}
	cfg.Period = period
	return cfg, cfg.Validate()
}
