package lifecycle

import (
	"errors"
	"os"
	"testing"
	"time"

	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
)

var testLogger *game_log.Logger

func init() {
	testLogger = game_log.New(os.Stdout, game_log.LevelInfo)
}

const tick = 10 * time.Millisecond

type countingPlayer struct {
	starts, stops int
	on            bool
}

func (p *countingPlayer) Start() { p.starts++; p.on = true }
func (p *countingPlayer) Stop()  { p.stops++; p.on = false }

func newManager(n int) (*Manager, []*countingPlayer) {
	ps := make([]*countingPlayer, n)
	players := make([]Player, n)
	for i := range ps {
		ps[i] = &countingPlayer{}
		players[i] = ps[i]
	}
	return New(tick, players, testLogger), ps
}

func run(m *Manager, voice, ticks int) []State {
	var seen []State
	for i := 0; i < ticks; i++ {
		m.Tick(time.Duration(i) * tick)
		s, _ := m.State(voice)
		seen = append(seen, s)
	}
	return seen
}

func TestRhythmAndRestSequence(t *testing.T) {
	m, ps := newManager(1)
	if err := m.SetParams(0, Params{Enabled: true, SoundTicks: 4, RestTicks: 2}); err != nil {
		t.Fatalf("SetParams: %v", err)
	}

	got := run(m, 0, 14)
	S, R := Sounding, Resting
	want := []State{S, S, S, S, R, R, S, S, S, S, R, R, S, S}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tick %d: expected %v, got %v (sequence %v)", i, want[i], got[i], got)
		}
	}
	if ps[0].starts != 3 || ps[0].stops != 2 {
		t.Fatalf("expected 3 starts and 2 stops, got %d/%d", ps[0].starts, ps[0].stops)
	}
}

func TestZeroRestSoundsContinuously(t *testing.T) {
	m, ps := newManager(1)
	_ = m.SetParams(0, Params{Enabled: true, SoundTicks: 2, RestTicks: 0})
	for _, s := range run(m, 0, 10) {
		if s != Sounding {
			t.Fatalf("expected continuous sound, got %v", s)
		}
	}
	if ps[0].starts != 1 {
		t.Fatalf("expected a single start, got %d", ps[0].starts)
	}
}

func TestLifeSpanExcludingNowNeverSounds(t *testing.T) {
	for _, rhythm := range []Params{
		{SoundTicks: 1, RestTicks: 0},
		{SoundTicks: 4, RestTicks: 2},
		{SoundTicks: 100, RestTicks: 1},
	} {
		m, ps := newManager(1)
		rhythm.Enabled = true
		rhythm.Life = LifeSpan{Start: time.Hour, End: 2 * time.Hour}
		_ = m.SetParams(0, rhythm)
		for i, s := range run(m, 0, 50) {
			if s != Idle {
				t.Fatalf("%+v: tick %d expected idle, got %v", rhythm, i, s)
			}
		}
		if ps[0].starts != 0 {
			t.Fatalf("%+v: voice started outside its life-span", rhythm)
		}
	}
}

func TestLifeSpanWindowGatesSound(t *testing.T) {
	m, ps := newManager(1)
	_ = m.SetParams(0, Params{
		Enabled:    true,
		SoundTicks: 1,
		Life:       LifeSpan{Start: 3 * tick, End: 6 * tick},
	})
	got := run(m, 0, 8)
	want := []State{Idle, Idle, Idle, Sounding, Sounding, Sounding, Idle, Idle}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tick %d: expected %v, got %v (%v)", i, want[i], got[i], got)
		}
	}
	if ps[0].on {
		t.Fatalf("expected voice to be stopped after leaving its life-span")
	}
}

func TestMalformedConfigAlwaysRests(t *testing.T) {
	m, ps := newManager(2)
	_ = m.SetParams(0, Params{Enabled: true, SoundTicks: 0, RestTicks: 2})
	_ = m.SetParams(1, Params{Enabled: true, SoundTicks: 3, RestTicks: -1})
	for i := 0; i < 20; i++ {
		m.Tick(time.Duration(i) * tick)
		for v := 0; v < 2; v++ {
			if s, _ := m.State(v); s != Resting {
				t.Fatalf("voice %d tick %d: expected resting, got %v", v, i, s)
			}
		}
	}
	if ps[0].starts+ps[1].starts != 0 {
		t.Fatalf("malformed voices must never start")
	}

	_ = m.SetParams(0, Params{Enabled: true, SoundTicks: 2, RestTicks: 1})
	m.Tick(20 * tick)
	if s, _ := m.State(0); s != Sounding {
		t.Fatalf("expected voice to sound once its config is fixed, got %v", s)
	}
}

func TestDisabledVoiceStaysIdle(t *testing.T) {
	m, _ := newManager(1)
	_ = m.SetParams(0, Params{SoundTicks: 1})
	for _, s := range run(m, 0, 5) {
		if s != Idle {
			t.Fatalf("expected idle, got %v", s)
		}
	}
}

func TestLateTickCatchesUp(t *testing.T) {
	m, ps := newManager(1)
	_ = m.SetParams(0, Params{Enabled: true, SoundTicks: 2, RestTicks: 2})
	m.Tick(0)
	m.Tick(5*tick + tick/2) // steps 2..6 in one call
	if m.Steps() != 6 {
		t.Fatalf("expected 6 steps, got %d", m.Steps())
	}
	// S S R R S S -> sounding after step 6.
	if s, _ := m.State(0); s != Sounding {
		t.Fatalf("expected sounding, got %v", s)
	}
	if ps[0].starts != 2 || ps[0].stops != 1 {
		t.Fatalf("expected 2 starts / 1 stop, got %d/%d", ps[0].starts, ps[0].stops)
	}
	m.Tick(5 * tick)
	if m.Steps() != 6 {
		t.Fatalf("repeated timestamp must not advance, got %d steps", m.Steps())
	}
}

func TestUnknownIndex(t *testing.T) {
	m, _ := newManager(16)
	for _, i := range []int{-1, 16, 99} {
		if _, err := m.State(i); !errors.Is(err, ErrUnknownIndex) {
			t.Fatalf("State(%d): expected ErrUnknownIndex, got %v", i, err)
		}
		if err := m.SetParams(i, Params{}); !errors.Is(err, ErrUnknownIndex) {
			t.Fatalf("SetParams(%d): expected ErrUnknownIndex, got %v", i, err)
		}
	}
	if _, err := m.State(15); err != nil {
		t.Fatalf("State(15): %v", err)
	}
}

func TestResetStopsEverything(t *testing.T) {
	m, ps := newManager(3)
	for i := 0; i < 3; i++ {
		_ = m.SetParams(i, Params{Enabled: true, SoundTicks: 5})
	}
	m.Tick(0)
	var transitions int
	m.OnTransition = func(int, State, State, int64) { transitions++ }
	m.Reset()
	for i, p := range ps {
		if p.on {
			t.Fatalf("voice %d still sounding after Reset", i)
		}
	}
	if transitions != 3 {
		t.Fatalf("expected 3 transitions to idle, got %d", transitions)
	}
	m.Tick(time.Minute)
	if m.Steps() != 1 {
		t.Fatalf("expected Reset to re-anchor the origin, got %d steps", m.Steps())
	}
}
