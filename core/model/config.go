package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ingyamilmolinar/polyvoice/core/beat"
	"github.com/ingyamilmolinar/polyvoice/core/lifecycle"
	"github.com/ingyamilmolinar/polyvoice/core/waveform"
)

// MaxVoices is the number of independent voices.
const MaxVoices = 16

const (
	DefaultTempo     = 120
	DefaultFrequency = 440
	DefaultVolume    = 50
	MaxVolume        = 100
	MinBalance       = -100
	MaxBalance       = 100
)

var (
	ErrInvalidIndex     = errors.New("voice index out of range")
	ErrInvalidFrequency = errors.New("frequency must be positive")
	ErrInvalidTempo     = errors.New("tempo must be positive")
	ErrInvalidLifeSpan  = errors.New("life-span ends before it starts")
)

// VoiceConfig holds the user-facing parameters of one voice. Volume and
// Balance are in UI units; the voice clamps them.
type VoiceConfig struct {
	Enabled    bool
	Instrument string
	Waveform   waveform.Kind
	Frequency  float64
	Volume     float64
	Balance    float64
	Rhythm     beat.NoteValue
	Rest       beat.NoteValue
	Life       lifecycle.LifeSpan
}

// DefaultVoice is a disabled quarter-note sine at A4.
func DefaultVoice() VoiceConfig {
	return VoiceConfig{
		Waveform:  waveform.Sine,
		Frequency: DefaultFrequency,
		Volume:    DefaultVolume,
		Rhythm:    beat.Quarter,
		Rest:      beat.Quarter,
	}
}

// ResolvedWaveform prefers the instrument mapping when an instrument is set.
func (c VoiceConfig) ResolvedWaveform() waveform.Kind {
	if c.Instrument != "" {
		return waveform.ForInstrument(c.Instrument)
	}
	return c.Waveform
}

func (c VoiceConfig) Validate() error {
	if !(c.Frequency > 0) || math.IsInf(c.Frequency, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, c.Frequency)
	}
	if c.Life.End > 0 && c.Life.End <= c.Life.Start {
		return fmt.Errorf("%w: %v..%v", ErrInvalidLifeSpan, c.Life.Start, c.Life.End)
	}
	return nil
}

// Timing resolves the rhythm and rest selections to scheduler ticks. A
// rhythm that resolves to zero ticks produces params the lifecycle manager
// treats as never sounding.
func (c VoiceConfig) Timing(bpm int, interval time.Duration) lifecycle.Params {
	return lifecycle.Params{
		Enabled:    c.Enabled,
		SoundTicks: c.Rhythm.Ticks(bpm, interval),
		RestTicks:  c.Rest.Ticks(bpm, interval),
		Life:       c.Life,
	}
}

// Patch is a complete engine setup.
type Patch struct {
	Tempo        int
	MasterVolume float64
	Voices       [MaxVoices]VoiceConfig
}

func NewPatch() Patch {
	p := Patch{Tempo: DefaultTempo, MasterVolume: 80}
	for i := range p.Voices {
		p.Voices[i] = DefaultVoice()
	}
	return p
}

func (p Patch) Validate() error {
	if p.Tempo <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTempo, p.Tempo)
	}
	for i, v := range p.Voices {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("voice %d: %w", i, err)
		}
	}
	return nil
}

// Enabled returns the indices of enabled voices.
func (p Patch) Enabled() []int {
	var out []int
	for i, v := range p.Voices {
		if v.Enabled {
			out = append(out, i)
		}
	}
	return out
}

func CheckIndex(i int) error {
	if i < 0 || i >= MaxVoices {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	return nil
}
