// Package voice renders one instrument line: a borrowed generator feeding the
// voice's own gain and stereo panner, which feed the shared master stage.
package voice

import (
	"errors"
	"fmt"

	"github.com/ingyamilmolinar/polyvoice/core/pool"
	"github.com/ingyamilmolinar/polyvoice/core/waveform"
	"github.com/ingyamilmolinar/polyvoice/internal/audio"
	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
	"github.com/ingyamilmolinar/polyvoice/internal/utils"
)

// RampTimeConstant smooths parameter changes on a sounding voice.
const RampTimeConstant = 0.1

var ErrInvalidFrequency = errors.New("voice: frequency must be positive")

type Voice struct {
	index  int
	ctx    audio.Context
	pool   *pool.Pool
	gain   audio.Gain
	pan    audio.Panner
	gen    *pool.Generator
	logger *game_log.Logger

	kind    waveform.Kind
	freq    float64
	volume  float64
	balance float64
	playing bool
}

// New builds the voice's gain -> pan chain and connects it to out.
func New(index int, ctx audio.Context, p *pool.Pool, out audio.Node, logger *game_log.Logger) (*Voice, error) {
	if logger == nil {
		logger = game_log.Discard()
	}
	gain, err := ctx.NewGain()
	if err != nil {
		return nil, fmt.Errorf("voice %d: create gain: %w", index, err)
	}
	pan, err := ctx.NewPanner()
	if err != nil {
		return nil, fmt.Errorf("voice %d: create panner: %w", index, err)
	}
	if err := gain.Connect(pan); err != nil {
		return nil, fmt.Errorf("voice %d: connect gain: %w", index, err)
	}
	if err := pan.Connect(out); err != nil {
		return nil, fmt.Errorf("voice %d: connect panner: %w", index, err)
	}
	v := &Voice{
		index:   index,
		ctx:     ctx,
		pool:    p,
		gain:    gain,
		pan:     pan,
		logger:  logger.With("voice"),
		kind:    waveform.Sine,
		freq:    440,
		volume:  50,
		balance: 0,
	}
	gain.Gain().SetValue(volumeToGain(v.volume))
	pan.Pan().SetValue(balanceToPan(v.balance))
	return v, nil
}

func (v *Voice) Index() int              { return v.index }
func (v *Voice) Playing() bool           { return v.playing }
func (v *Voice) Waveform() waveform.Kind { return v.kind }
func (v *Voice) Frequency() float64      { return v.freq }
func (v *Voice) Volume() float64         { return v.volume }
func (v *Voice) Balance() float64        { return v.balance }

func volumeToGain(pct float64) float64 {
	return utils.MapRange(pct, 0, 100, 0, 1)
}

func balanceToPan(pct float64) float64 {
	return utils.MapRange(pct, -100, 100, -1, 1)
}

// SetWaveform changes the shape. A sounding voice is restarted so the change
// is heard immediately.
func (v *Voice) SetWaveform(k waveform.Kind) {
	if k == v.kind {
		return
	}
	v.kind = k
	if v.playing {
		v.Start()
	}
}

func (v *Voice) SetFrequency(hz float64) error {
	if !(hz > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, hz)
	}
	v.freq = hz
	if v.playing {
		v.gen.Osc().Frequency().SetTargetAtTime(hz, v.ctx.CurrentTime(), RampTimeConstant)
	}
	return nil
}

func (v *Voice) SetVolume(pct float64) {
	v.volume = utils.Clamp(pct, 0, 100)
	v.gain.Gain().SetTargetAtTime(volumeToGain(v.volume), v.ctx.CurrentTime(), RampTimeConstant)
}

func (v *Voice) SetBalance(pct float64) {
	v.balance = utils.Clamp(pct, -100, 100)
	v.pan.Pan().SetTargetAtTime(balanceToPan(v.balance), v.ctx.CurrentTime(), RampTimeConstant)
}

// Start begins a note. A sounding voice is stopped first. When the pool is
// exhausted the note is dropped and the voice stays silent.
func (v *Voice) Start() {
	if v.playing {
		v.Stop()
	}
	g, ok := v.pool.Acquire()
	if !ok {
		v.logger.Debugf("voice %d: no free generator, note dropped", v.index)
		return
	}
	osc := g.Osc()
	osc.SetWaveform(v.kind)
	osc.Frequency().SetValue(v.freq)
	if err := osc.Connect(v.gain); err != nil {
		v.logger.Warnf("voice %d: connect generator %d: %v", v.index, g.ID(), err)
		v.release(g)
		return
	}
	if err := osc.Start(v.ctx.CurrentTime()); err != nil {
		v.logger.Warnf("voice %d: start generator %d: %v", v.index, g.ID(), err)
		osc.Disconnect()
		v.release(g)
		return
	}
	v.gen = g
	v.playing = true
	v.logger.Debugf("voice %d: start %v %.2fHz on generator %d", v.index, v.kind, v.freq, g.ID())
}

// Stop ends the note and returns the generator. Stopping a silent voice
// does nothing.
func (v *Voice) Stop() {
	if !v.playing {
		return
	}
	g := v.gen
	v.gen = nil
	v.playing = false
	osc := g.Osc()
	if err := osc.Stop(v.ctx.CurrentTime()); err != nil {
		v.logger.Warnf("voice %d: stop generator %d: %v", v.index, g.ID(), err)
	}
	osc.Disconnect()
	v.release(g)
	v.logger.Debugf("voice %d: stop", v.index)
}

func (v *Voice) release(g *pool.Generator) {
	if err := v.pool.Release(g); err != nil {
		v.logger.Errorf("voice %d: release generator %d: %v", v.index, g.ID(), err)
	}
}

// Close stops the voice and detaches its chain from the master stage.
func (v *Voice) Close() {
	v.Stop()
	v.gain.Disconnect()
	v.pan.Disconnect()
}
