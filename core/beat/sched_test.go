package beat

import (
	"log"
	"testing"
	"time"
)

func TestSchedulerFiresEveryInterval(t *testing.T) {
	var now time.Duration
	fake := func() time.Duration { return now }

	var fired []time.Duration
	s := NewScheduler(fake)
	s.Interval = 10 * time.Millisecond
	s.OnTick = func(at time.Duration) {
		log.Printf("[TEST] OnTick at %v", at)
		fired = append(fired, at)
	}
	s.Start()

	for i := 0; i < 50; i++ {
		now += 2 * time.Millisecond
		s.Tick()
	}

	expected := []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond, 60 * time.Millisecond, 70 * time.Millisecond, 80 * time.Millisecond, 90 * time.Millisecond, 100 * time.Millisecond}
	if len(fired) != len(expected) {
		t.Fatalf("expected %d ticks, got %d (%v)", len(expected), len(fired), fired)
	}
	for i, at := range fired {
		if at != expected[i] {
			t.Fatalf("expected tick %d at %v, got %v", i, expected[i], at)
		}
	}
}

func TestSchedulerKeepsRateWhenPolledOffGrid(t *testing.T) {
	var now time.Duration
	fired := 0
	s := NewScheduler(func() time.Duration { return now })
	s.OnTick = func(time.Duration) { fired++ }
	s.Start()

	// Polling every 16ms against a 33ms interval lands late on every
	// boundary, but each lateness must not carry into the next one.
	for now < time.Second {
		now += 16 * time.Millisecond
		s.Tick()
	}
	if fired != 31 {
		t.Fatalf("expected 31 ticks in 1s (start plus 30 boundaries), got %d", fired)
	}
}

func TestSchedulerFiresOnceAfterStall(t *testing.T) {
	var now time.Duration
	var fired []time.Duration
	s := NewScheduler(func() time.Duration { return now })
	s.Interval = 10 * time.Millisecond
	s.OnTick = func(at time.Duration) { fired = append(fired, at) }
	s.Start()

	now = 95 * time.Millisecond
	s.Tick()
	now = 99 * time.Millisecond
	s.Tick()
	now = 100 * time.Millisecond
	s.Tick()
	if len(fired) != 3 || fired[1] != 95*time.Millisecond || fired[2] != 100*time.Millisecond {
		t.Fatalf("expected one catch-up tick then the next boundary, got %v", fired)
	}
}

func TestFirstTickPlaysImmediately(t *testing.T) {
	fired := 0
	s := NewScheduler(func() time.Duration { return time.Second })
	s.OnTick = func(time.Duration) { fired++ }
	s.Start()

	if fired != 1 {
		t.Fatalf("expected first tick to fire once, got %d", fired)
	}
}

func TestStoppedSchedulerDoesNotFire(t *testing.T) {
	var now time.Duration
	fired := 0
	s := NewScheduler(func() time.Duration { now += time.Second; return now })
	s.OnTick = func(time.Duration) { fired++ }
	s.Tick()
	s.Start()
	s.Stop()
	s.Tick()
	if fired != 1 {
		t.Fatalf("expected only the Start tick, got %d", fired)
	}
	if s.Running() {
		t.Fatalf("expected scheduler to be stopped")
	}
}

func TestSchedulerSkipsWhenIntervalZero(t *testing.T) {
	fired := 0
	s := NewScheduler(func() time.Duration { return 0 })
	s.Interval = 0
	s.OnTick = func(time.Duration) { fired++ }
	s.Start()
	s.Tick()
	if fired != 0 {
		t.Fatalf("expected no ticks when Interval=0, got %d", fired)
	}
}
