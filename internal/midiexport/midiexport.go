// Package midiexport renders a patch's note schedule to a Standard MIDI File
// without touching the audio device. Each enabled voice becomes one track on
// its own melodic channel, with a Program Change when its instrument is a
// General MIDI name.
package midiexport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ingyamilmolinar/polyvoice/core/beat"
	"github.com/ingyamilmolinar/polyvoice/core/lifecycle"
	"github.com/ingyamilmolinar/polyvoice/core/model"
	"github.com/ingyamilmolinar/polyvoice/core/waveform"
	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
	"github.com/ingyamilmolinar/polyvoice/internal/utils"
)

// Resolution is the number of MIDI ticks per quarter note.
const Resolution = 960

const (
	ccVolume = 7
	ccPan    = 10

	// percussionChannel is General MIDI channel 10, reserved for drum kits.
	percussionChannel = 9
	lastChannel       = 15
)

var ErrNoBars = errors.New("midiexport: bar count must be positive")

type Options struct {
	Bars         int
	TickInterval time.Duration
	Logger       *game_log.Logger
}

type event struct {
	at  uint32
	off bool
	seq int
	msg midi.Message
}

// Render runs the lifecycle of every voice in p for opts.Bars bars of 4/4
// and returns the resulting file.
func Render(p model.Patch, opts Options) (*smf.SMF, error) {
	if opts.Bars <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoBars, opts.Bars)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = beat.DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = game_log.Discard()
	}
	logger := opts.Logger.With("midi")

	beatLen := time.Duration(float64(time.Minute) / float64(p.Tempo))
	length := time.Duration(opts.Bars*4) * beatLen
	toTicks := func(d time.Duration) uint32 {
		return uint32(math.Round(d.Seconds() / beatLen.Seconds() * Resolution))
	}
	end := toTicks(length)

	clock := lifecycle.New(opts.TickInterval, make([]lifecycle.Player, model.MaxVoices), opts.Logger)
	for i, v := range p.Voices {
		if err := clock.SetParams(i, v.Timing(p.Tempo, opts.TickInterval)); err != nil {
			return nil, err
		}
	}

	channels, shared := assignChannels(p.Enabled())
	if shared >= 0 {
		logger.Warnf("voice %d shares channel %d with voice %d: only fifteen melodic channels", shared, lastChannel+1, shared-1)
	}

	events := make([][]event, model.MaxVoices)
	keys := make([]uint8, model.MaxVoices)
	sounding := make([]bool, model.MaxVoices)
	seq := 0
	clock.OnTransition = func(i int, from, to lifecycle.State, step int64) {
		at := toTicks(time.Duration(step-1) * opts.TickInterval)
		if at >= end {
			return
		}
		ch := channels[i]
		switch {
		case to == lifecycle.Sounding:
			vel := uint8(math.Round(utils.MapRange(p.Voices[i].Volume, 0, 100, 1, 127)))
			events[i] = append(events[i], event{at: at, seq: seq, msg: midi.NoteOn(ch, keys[i], vel)})
			sounding[i] = true
		case from == lifecycle.Sounding:
			events[i] = append(events[i], event{at: at, off: true, seq: seq, msg: midi.NoteOff(ch, keys[i])})
			sounding[i] = false
		}
		seq++
	}
	for i, v := range p.Voices {
		keys[i] = uint8(utils.FreqToMIDI(v.Frequency))
	}

	clock.Tick(0)
	clock.Tick(length - 1)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(float64(p.Tempo)))
	tempo.Close(end)
	if err := s.Add(tempo); err != nil {
		return nil, fmt.Errorf("add tempo track: %w", err)
	}

	for _, i := range p.Enabled() {
		ch := channels[i]
		if sounding[i] {
			events[i] = append(events[i], event{at: end, off: true, seq: seq, msg: midi.NoteOff(ch, keys[i])})
			seq++
		}
		evs := events[i]
		sort.SliceStable(evs, func(a, b int) bool {
			if evs[a].at != evs[b].at {
				return evs[a].at < evs[b].at
			}
			if evs[a].off != evs[b].off {
				return evs[a].off
			}
			return evs[a].seq < evs[b].seq
		})

		cfg := p.Voices[i]
		name := cfg.Instrument
		if name == "" {
			name = fmt.Sprintf("voice %d %s", i+1, cfg.ResolvedWaveform())
		}
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(name))
		if prog, ok := waveform.Program(cfg.Instrument); ok && i != shared {
			tr.Add(0, midi.ProgramChange(ch, prog))
		}
		tr.Add(0, midi.ControlChange(ch, ccVolume, uint8(math.Round(utils.MapRange(cfg.Volume, 0, 100, 0, 127)))))
		tr.Add(0, midi.ControlChange(ch, ccPan, uint8(math.Round(utils.MapRange(cfg.Balance, -100, 100, 0, 127)))))
		var last uint32
		for _, ev := range evs {
			tr.Add(ev.at-last, ev.msg)
			last = ev.at
		}
		tr.Close(end - last)
		if err := s.Add(tr); err != nil {
			return nil, fmt.Errorf("add track for voice %d: %w", i, err)
		}
		logger.Debugf("voice %d: %d events", i, len(evs))
	}
	logger.Infof("rendered %d bars at %d bpm, %d voices", opts.Bars, p.Tempo, len(p.Enabled()))
	return s, nil
}

// assignChannels gives each enabled voice, in voice order, the next free
// channel other than the percussion one. That leaves fifteen, so when all
// sixteen voices are enabled the last one shares channel 16 with the voice
// before it and plays with that voice's program. shared is its index, or -1.
func assignChannels(enabled []int) (channels [model.MaxVoices]uint8, shared int) {
	shared = -1
	next := uint8(0)
	for _, i := range enabled {
		if next == percussionChannel {
			next++
		}
		if next > lastChannel {
			channels[i] = lastChannel
			shared = i
			continue
		}
		channels[i] = next
		next++
	}
	return channels, shared
}

// Write renders p and writes the file to w.
func Write(w io.Writer, p model.Patch, opts Options) (int64, error) {
	s, err := Render(p, opts)
	if err != nil {
		return 0, err
	}
	n, err := s.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("write midi: %w", err)
	}
	return n, nil
}

// WriteFile renders p to path.
func WriteFile(path string, p model.Patch, opts Options) error {
	s, err := Render(p, opts)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("write midi %s: %w", path, err)
	}
	return nil
}
