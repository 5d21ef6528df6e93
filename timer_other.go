//go:build !windows && !linux

package timerjitter

import "time"

// tickerTimer falls back to the Go runtime timer heap where no kernel
// periodic timer object is wired up.
type tickerTimer struct {
	first  *time.Timer
	ticker *time.Ticker
	period time.Duration
	fired  bool
	closed bool
}

func newPlatformTimer(flags ResolutionFlags) (PeriodicTimer, error) {
	if flags != FlagsDefault {
		return nil, ErrUnsupportedFlags
	}
	return &tickerTimer{}, nil
}

func (t *tickerTimer) Arm(due, period time.Duration) error {
	t.Cancel()
	t.first = time.NewTimer(due)
	t.period = period
	t.fired = false
	return nil
}

func (t *tickerTimer) Wait() error {
	if t.closed {
		return ErrTimerClosed
	}
	if !t.fired {
		<-t.first.C
		t.fired = true
		t.ticker = time.NewTicker(t.period)
		return nil
	}
	<-t.ticker.C
	return nil
}

func (t *tickerTimer) Cancel() error {
	if t.first != nil {
		t.first.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
	}
	return nil
}

func (t *tickerTimer) Close() error {
	t.Cancel()
	t.closed = true
	return nil
}
