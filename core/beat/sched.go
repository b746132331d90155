package beat

import "time"

// DefaultInterval is the scheduling period, roughly 30Hz.
const DefaultInterval = 33 * time.Millisecond

// Scheduler turns a free-running clock into fixed-interval ticks. It does
// not own a goroutine; the caller polls Tick, usually from a time.Ticker.
type Scheduler struct {
	Interval time.Duration
	OnTick   func(now time.Duration)

	now     func() time.Duration
	last    time.Duration
	fired   bool
	running bool
}

// NewScheduler returns a stopped scheduler reading the given clock.
func NewScheduler(now func() time.Duration) *Scheduler {
	if now == nil {
		start := time.Now()
		now = func() time.Duration { return time.Since(start) }
	}
	return &Scheduler{
		Interval: DefaultInterval,
		now:      now,
	}
}

// Start arms the scheduler and fires the first tick immediately.
func (s *Scheduler) Start() {
	s.running = true
	s.fired = false
	s.Tick()
}

// Stop disarms the scheduler. Pending time is discarded.
func (s *Scheduler) Stop() {
	s.running = false
	s.fired = false
}

func (s *Scheduler) Running() bool { return s.running }

// Tick fires OnTick when the next interval boundary has been reached. The
// boundaries stay on the grid laid down by Start, so polling jitter delays a
// fire without pushing back the ones after it. A late poll fires once; the
// receiver catches up from the timestamp.
func (s *Scheduler) Tick() {
	if !s.running || s.Interval <= 0 {
		return
	}
	now := s.now()
	if !s.fired {
		s.fired = true
		s.last = now
	} else {
		elapsed := now - s.last
		if elapsed < s.Interval {
			return
		}
		s.last += elapsed - elapsed%s.Interval
	}
	if s.OnTick != nil {
		s.OnTick(now)
	}
}
