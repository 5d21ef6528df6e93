package timerjitter

// Stopwatch measures a single elapsed-time interval on a Clock.
// A Stopwatch is not safe for concurrent use; each caller owns its own.
//
// While running, the elapsed values are computed against the current tick.
// After Stop they are frozen until the next Start or Reset.
type Stopwatch struct {
	clock     *Clock
	startTick int64
	endTick   int64
	running   bool
}

// NewStopwatch creates a stopped Stopwatch with its own Clock.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{clock: NewClock()}
}

// Start marks the stopwatch running and captures the start tick.
// Calling Start on a running stopwatch moves the start tick.
func (s *Stopwatch) Start() {
	s.running = true
	s.startTick = s.clock.Ticks()
}

// Stop captures the end tick and freezes the elapsed values.
// A second Stop moves the end tick to the newer moment.
func (s *Stopwatch) Stop() {
	s.endTick = s.clock.Ticks()
	s.running = false
}

// Reset restarts the measurement. It behaves exactly like Start and leaves
// the stopwatch running.
func (s *Stopwatch) Reset() {
	s.Start()
}

// Running reports whether the stopwatch is measuring.
func (s *Stopwatch) Running() bool {
	return s.running
}

func (s *Stopwatch) elapsedTicks() int64 {
	if s.running {
		return s.clock.Ticks() - s.startTick
	}
	return s.endTick - s.startTick
}

// ElapsedMilliseconds returns the elapsed time in whole milliseconds (truncated).
func (s *Stopwatch) ElapsedMilliseconds() int64 {
	return s.clock.TicksToMilliseconds(s.elapsedTicks())
}

// ElapsedMicroseconds returns the elapsed time in whole microseconds (truncated).
func (s *Stopwatch) ElapsedMicroseconds() int64 {
	return s.clock.TicksToMicroseconds(s.elapsedTicks())
}
