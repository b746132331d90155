// Package engine owns the audio graph root: the platform context, the master
// output stage, the generator pool, the sixteen voices and the clock that
// drives them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ingyamilmolinar/polyvoice/core/beat"
	"github.com/ingyamilmolinar/polyvoice/core/lifecycle"
	"github.com/ingyamilmolinar/polyvoice/core/model"
	"github.com/ingyamilmolinar/polyvoice/core/pool"
	"github.com/ingyamilmolinar/polyvoice/core/voice"
	"github.com/ingyamilmolinar/polyvoice/internal/audio"
	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
	"github.com/ingyamilmolinar/polyvoice/internal/utils"
)

// DefaultPreview is how long Preview sounds a voice when no duration is given.
const DefaultPreview = 750 * time.Millisecond

var (
	ErrAudioUnavailable = errors.New("engine: audio unavailable")
	ErrTransportRunning = errors.New("engine: transport is running")
)

type Options struct {
	Backend      string
	SampleRate   int
	PoolCapacity int
	TickInterval time.Duration
	Logger       *game_log.Logger

	// Open overrides backend selection; tests inject a fake context here.
	Open func() (audio.Context, error)
}

// Snapshot is a read-only view for displays. It is safe to read from any
// goroutine.
type Snapshot struct {
	Available bool
	Transport bool
	Tempo     int
	Master    float64
	Time      float64
	Pool      pool.Stats
	States    [model.MaxVoices]lifecycle.State
	Playing   [model.MaxVoices]bool
}

// Engine is driven from a single goroutine: either the caller's, through
// Tick, or Run's. Other goroutines use Post and Snapshot.
type Engine struct {
	opts   Options
	logger *game_log.Logger

	initialized bool
	initErr     error
	available   bool

	ctx    audio.Context
	master audio.Gain
	pool   *pool.Pool
	voices [model.MaxVoices]*voice.Voice
	clock  *lifecycle.Manager
	sched  *beat.Scheduler

	patch     model.Patch
	transport bool
	previews  map[int]time.Duration

	cmds chan func(*Engine)
	done chan struct{}
	snap atomic.Pointer[Snapshot]
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = game_log.Discard()
	}
	if opts.Backend == "" {
		opts.Backend = "headless"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.PoolCapacity <= 0 {
		opts.PoolCapacity = pool.DefaultCapacity
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = beat.DefaultInterval
	}
	e := &Engine{
		opts:     opts,
		logger:   opts.Logger.With("engine"),
		patch:    model.NewPatch(),
		previews: map[int]time.Duration{},
		cmds:     make(chan func(*Engine), 64),
		done:     make(chan struct{}),
	}
	e.publish()
	return e
}

// Initialize opens the platform context and builds the graph. It runs once;
// later calls return the first result, or ErrAudioUnavailable after Close.
// On failure the engine stays inert and every other operation is a no-op.
func (e *Engine) Initialize() error {
	if e.initialized {
		return e.initErr
	}
	e.initialized = true
	if err := e.build(); err != nil {
		e.initErr = fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
		e.logger.Errorf("%v", e.initErr)
		e.publish()
		return e.initErr
	}
	e.available = true
	e.logger.Infof("audio ready: backend=%s pool=%d interval=%v", e.opts.Backend, e.opts.PoolCapacity, e.opts.TickInterval)
	e.publish()
	return nil
}

func (e *Engine) build() error {
	open := e.opts.Open
	if open == nil {
		open = func() (audio.Context, error) {
			return audio.Open(e.opts.Backend, audio.Options{SampleRate: e.opts.SampleRate})
		}
	}
	ctx, err := open()
	if err != nil {
		return err
	}
	if err := ctx.Resume(); err != nil {
		_ = ctx.Close()
		return fmt.Errorf("resume: %w", err)
	}
	master, err := ctx.NewGain()
	if err != nil {
		_ = ctx.Close()
		return fmt.Errorf("master gain: %w", err)
	}
	if err := master.Connect(ctx.Destination()); err != nil {
		_ = ctx.Close()
		return fmt.Errorf("connect master: %w", err)
	}
	master.Gain().SetValue(utils.MapRange(e.patch.MasterVolume, 0, 100, 0, 1))

	p := pool.New(e.opts.PoolCapacity, ctx.NewGenerator, e.opts.Logger)
	players := make([]lifecycle.Player, model.MaxVoices)
	for i := range e.voices {
		v, err := voice.New(i, ctx, p, master, e.opts.Logger)
		if err != nil {
			_ = ctx.Close()
			return err
		}
		e.voices[i] = v
		players[i] = v
	}

	e.ctx = ctx
	e.master = master
	e.pool = p
	e.clock = lifecycle.New(e.opts.TickInterval, players, e.opts.Logger)
	e.sched = beat.NewScheduler(e.now)
	e.sched.Interval = e.opts.TickInterval
	e.sched.OnTick = e.Tick
	for i := range e.voices {
		e.apply(i)
	}
	return nil
}

// Available reports whether Initialize succeeded and Close has not run.
func (e *Engine) Available() bool { return e.available }

// CurrentTime is the audio clock in seconds, 0 while inert.
func (e *Engine) CurrentTime() float64 {
	if !e.available {
		return 0
	}
	return e.ctx.CurrentTime()
}

func (e *Engine) now() time.Duration {
	return time.Duration(e.CurrentTime() * float64(time.Second))
}

func (e *Engine) SetMasterVolume(pct float64) {
	e.patch.MasterVolume = utils.Clamp(pct, 0, 100)
	if e.available {
		e.master.Gain().SetTargetAtTime(utils.MapRange(e.patch.MasterVolume, 0, 100, 0, 1), e.ctx.CurrentTime(), voice.RampTimeConstant)
	}
	e.publish()
}

func (e *Engine) MasterVolume() float64 { return e.patch.MasterVolume }

// Patch returns a copy of the current configuration.
func (e *Engine) Patch() model.Patch { return e.patch }

// Configure validates and applies one voice's configuration. Invalid input
// is rejected without changing anything.
func (e *Engine) Configure(i int, cfg model.VoiceConfig) error {
	if err := model.CheckIndex(i); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("voice %d: %w", i, err)
	}
	e.patch.Voices[i] = cfg
	if e.available {
		e.apply(i)
	}
	e.publish()
	return nil
}

// ApplyPatch replaces the whole configuration.
func (e *Engine) ApplyPatch(p model.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.patch = p
	e.SetMasterVolume(p.MasterVolume)
	if e.available {
		for i := range e.voices {
			e.apply(i)
		}
	}
	e.publish()
	return nil
}

// SetTempo changes the BPM that rhythm and rest selections resolve against.
func (e *Engine) SetTempo(bpm int) error {
	if bpm <= 0 {
		return fmt.Errorf("%w: %d", model.ErrInvalidTempo, bpm)
	}
	e.patch.Tempo = bpm
	if e.available {
		for i := range e.voices {
			e.apply(i)
		}
	}
	e.publish()
	return nil
}

func (e *Engine) apply(i int) {
	cfg := e.patch.Voices[i]
	v := e.voices[i]
	v.SetWaveform(cfg.ResolvedWaveform())
	if err := v.SetFrequency(cfg.Frequency); err != nil {
		e.logger.Warnf("voice %d: %v", i, err)
	}
	v.SetVolume(cfg.Volume)
	v.SetBalance(cfg.Balance)
	if err := e.clock.SetParams(i, cfg.Timing(e.patch.Tempo, e.opts.TickInterval)); err != nil {
		e.logger.Errorf("voice %d: %v", i, err)
	}
}

// Voice exposes a voice for direct control.
func (e *Engine) Voice(i int) (*voice.Voice, error) {
	if err := model.CheckIndex(i); err != nil {
		return nil, err
	}
	if !e.available {
		return nil, ErrAudioUnavailable
	}
	return e.voices[i], nil
}

// State reports the lifecycle state of voice i. A voice being previewed
// reports Sounding.
func (e *Engine) State(i int) (lifecycle.State, error) {
	if err := model.CheckIndex(i); err != nil {
		return lifecycle.Idle, err
	}
	if !e.available {
		return lifecycle.Idle, nil
	}
	if _, ok := e.previews[i]; ok {
		return lifecycle.Sounding, nil
	}
	return e.clock.State(i)
}

func (e *Engine) Stats() pool.Stats {
	if !e.available {
		return pool.Stats{Capacity: e.opts.PoolCapacity, Free: e.opts.PoolCapacity}
	}
	return e.pool.Stats()
}

// StartTransport starts the lifecycle clock from transport time zero. Running
// previews are cut so the clock owns every voice.
func (e *Engine) StartTransport() {
	if !e.available || e.transport {
		return
	}
	e.stopPreviews()
	e.transport = true
	e.clock.Reset()
	if !e.sched.Running() {
		e.sched.Start()
	} else {
		e.Tick(e.now())
	}
	e.logger.Infof("transport started at %.3fs", e.CurrentTime())
}

// StopTransport halts the clock and silences every voice.
func (e *Engine) StopTransport() {
	if !e.available {
		return
	}
	e.transport = false
	e.clock.Reset()
	e.stopAll()
	e.logger.Infof("transport stopped")
	e.publish()
}

func (e *Engine) Transport() bool { return e.transport }

// Preview sounds voice i for d regardless of its rhythm, rest and life-span.
// While previewing the voice reports Sounding. Previews only run with the
// transport stopped; otherwise Preview returns ErrTransportRunning.
func (e *Engine) Preview(i int, d time.Duration) error {
	if err := model.CheckIndex(i); err != nil {
		return err
	}
	if !e.available {
		return nil
	}
	if e.transport {
		return fmt.Errorf("%w: cannot preview voice %d", ErrTransportRunning, i)
	}
	if d <= 0 {
		d = DefaultPreview
	}
	e.voices[i].Start()
	if e.voices[i].Playing() {
		e.previews[i] = e.now() + d
	}
	e.publish()
	return nil
}

// Tick advances the engine to now on the audio clock: the lifecycle clock
// when the transport runs, and preview expiry otherwise.
func (e *Engine) Tick(now time.Duration) {
	if !e.available {
		return
	}
	if e.transport {
		e.clock.Tick(now)
	}
	for i, until := range e.previews {
		if now >= until {
			delete(e.previews, i)
			e.voices[i].Stop()
		}
	}
	e.publish()
}

func (e *Engine) stopPreviews() {
	for i := range e.previews {
		e.voices[i].Stop()
		delete(e.previews, i)
	}
}

func (e *Engine) stopAll() {
	e.stopPreviews()
	for _, v := range e.voices {
		v.Stop()
	}
}

// Post queues fn to run on the goroutine executing Run. It returns false if
// Run has finished.
func (e *Engine) Post(fn func(*Engine)) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.cmds <- fn:
		return true
	case <-e.done:
		return false
	}
}

// Run drives the scheduler until ctx is cancelled, then stops every voice so
// all generators are back in the pool. Run must be called at most once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	if err := e.Initialize(); err != nil {
		return err
	}
	if !e.sched.Running() {
		e.sched.Start()
	}
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.sched.Tick()
		case fn := <-e.cmds:
			fn(e)
			e.publish()
		case <-ctx.Done():
			e.sched.Stop()
			e.StopTransport()
			e.logger.Infof("run loop finished: %v", ctx.Err())
			return nil
		}
	}
}

// Close tears down the graph and releases the platform context. The engine
// is inert afterwards and Initialize reports ErrAudioUnavailable.
func (e *Engine) Close() error {
	if !e.available {
		return nil
	}
	e.StopTransport()
	for _, v := range e.voices {
		v.Close()
	}
	e.master.Disconnect()
	e.available = false
	e.initErr = fmt.Errorf("%w: engine closed", ErrAudioUnavailable)
	err := e.ctx.Close()
	e.publish()
	return err
}

// Snapshot returns the state published after the most recent change.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

func (e *Engine) publish() {
	s := &Snapshot{
		Available: e.available,
		Transport: e.transport,
		Tempo:     e.patch.Tempo,
		Master:    e.patch.MasterVolume,
		Pool:      e.Stats(),
	}
	if e.available {
		s.Time = e.ctx.CurrentTime()
		for i, v := range e.voices {
			s.States[i], _ = e.State(i)
			s.Playing[i] = v.Playing()
		}
	}
	e.snap.Store(s)
}
