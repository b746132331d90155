// Package lifecycle decides, tick by tick, which voices should be sounding.
//
// Every voice runs the same small state machine:
//
//	Idle -> Sounding -> Resting -> Sounding -> ...
//
// A voice leaves Idle when the transport time enters its life-span and it is
// enabled. It then sounds for SoundTicks, rests for RestTicks and repeats.
// Leaving the life-span returns it to Idle.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
)

var ErrUnknownIndex = errors.New("lifecycle: unknown voice index")

type State int

const (
	Idle State = iota
	Sounding
	Resting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sounding:
		return "sounding"
	case Resting:
		return "resting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LifeSpan is the transport-time window a voice may sound in. End == 0
// leaves the window open.
type LifeSpan struct {
	Start time.Duration
	End   time.Duration
}

func (l LifeSpan) Contains(t time.Duration) bool {
	if t < l.Start {
		return false
	}
	return l.End <= 0 || t < l.End
}

// Params are the resolved timing values of one voice.
type Params struct {
	Enabled    bool
	SoundTicks int
	RestTicks  int
	Life       LifeSpan
}

// malformed params never sound.
func (p Params) malformed() bool {
	return p.SoundTicks <= 0 || p.RestTicks < 0
}

// Player is driven by the manager on state transitions.
type Player interface {
	Start()
	Stop()
}

type slot struct {
	player Player
	params Params
	state  State
	phase  int // ticks spent in the current state
}

// Manager is not safe for concurrent use.
type Manager struct {
	interval time.Duration
	slots    []slot
	origin   time.Duration
	steps    int64
	started  bool
	logger   *game_log.Logger

	// OnTransition, when set, observes every state change. step is the
	// 1-based tick the change happened on.
	OnTransition func(index int, from, to State, step int64)
}

// New returns a manager for len(players) voices ticking every interval.
func New(interval time.Duration, players []Player, logger *game_log.Logger) *Manager {
	if logger == nil {
		logger = game_log.Discard()
	}
	m := &Manager{
		interval: interval,
		slots:    make([]slot, len(players)),
		logger:   logger.With("clock"),
	}
	for i, p := range players {
		m.slots[i].player = p
	}
	return m
}

// Steps reports how many ticks have been processed since the last Reset.
func (m *Manager) Steps() int64 { return m.steps }

func (m *Manager) SetParams(i int, p Params) error {
	if i < 0 || i >= len(m.slots) {
		return fmt.Errorf("%w: %d", ErrUnknownIndex, i)
	}
	m.slots[i].params = p
	return nil
}

func (m *Manager) State(i int) (State, error) {
	if i < 0 || i >= len(m.slots) {
		return Idle, fmt.Errorf("%w: %d", ErrUnknownIndex, i)
	}
	return m.slots[i].state, nil
}

// States returns a copy of every voice's state.
func (m *Manager) States() []State {
	out := make([]State, len(m.slots))
	for i := range m.slots {
		out[i] = m.slots[i].state
	}
	return out
}

// Tick advances all voices to now. The first call after New or Reset anchors
// transport time zero at now and processes one step; later calls process
// every whole interval that has elapsed since, so a late tick catches up.
func (m *Manager) Tick(now time.Duration) {
	if m.interval <= 0 {
		return
	}
	if !m.started {
		m.started = true
		m.origin = now
	}
	if now < m.origin {
		return
	}
	target := int64((now-m.origin)/m.interval) + 1
	for m.steps < target {
		m.steps++
		m.step(time.Duration(m.steps-1) * m.interval)
	}
}

func (m *Manager) step(at time.Duration) {
	for i := range m.slots {
		s := &m.slots[i]
		next, phase := advance(s, at)
		s.phase = phase
		if next != s.state {
			m.transition(i, s, next)
		}
	}
}

// advance computes the state a voice is in at transport time at.
func advance(s *slot, at time.Duration) (State, int) {
	p := s.params
	if !p.Enabled || !p.Life.Contains(at) {
		return Idle, 0
	}
	if p.malformed() {
		return Resting, 0
	}
	switch s.state {
	case Idle:
		return Sounding, 1
	case Sounding:
		if s.phase < p.SoundTicks {
			return Sounding, s.phase + 1
		}
		if p.RestTicks == 0 {
			return Sounding, 1
		}
		return Resting, 1
	default:
		if s.phase >= 1 && s.phase < p.RestTicks {
			return Resting, s.phase + 1
		}
		// Resting entered through a malformed config has phase 0 and
		// restarts the cycle once the config is fixed.
		return Sounding, 1
	}
}

func (m *Manager) transition(i int, s *slot, next State) {
	prev := s.state
	s.state = next
	m.logger.Debugf("voice %d: %v -> %v at step %d", i, prev, next, m.steps)
	if s.player != nil {
		switch {
		case next == Sounding:
			s.player.Start()
		case prev == Sounding:
			s.player.Stop()
		}
	}
	if m.OnTransition != nil {
		m.OnTransition(i, prev, next, m.steps)
	}
}

// Reset stops every sounding voice, returns all voices to Idle and forgets
// the transport origin.
func (m *Manager) Reset() {
	for i := range m.slots {
		s := &m.slots[i]
		if s.state != Idle {
			m.transition(i, s, Idle)
		}
		s.phase = 0
	}
	m.started = false
	m.steps = 0
	m.origin = 0
}
