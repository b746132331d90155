package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ingyamilmolinar/polyvoice/core/beat"
	"github.com/ingyamilmolinar/polyvoice/core/model"
	"github.com/ingyamilmolinar/polyvoice/core/waveform"
	"github.com/ingyamilmolinar/polyvoice/internal/utils"
)

// scriptTimeout bounds how long a patch script may run.
const scriptTimeout = 2 * time.Second

var (
	ErrInvalidPatch = errors.New("config: invalid patch")
	ErrUnknownNote  = errors.New("config: unknown note name")
)

// LoadPatch runs the Lua script at path and returns the patch it describes.
func LoadPatch(path string) (model.Patch, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return model.Patch{}, fmt.Errorf("read patch: %w", err)
	}
	return ParsePatch(path, string(src))
}

// ParsePatch runs a patch script. The script may set the globals
//
//	tempo   = 120
//	master  = 80
//	voices  = { { instrument = "Cello", frequency = note("C3"), rhythm = "quarter" }, ... }
//
// Entries of voices map to voice slots by their 1-based key. Listed voices
// are enabled unless they say enabled = false. Everything not mentioned keeps
// its default.
func ParsePatch(name, src string) (model.Patch, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return model.Patch{}, fmt.Errorf("%s: open %s: %w", name, lib.name, err)
		}
	}
	L.SetGlobal("note", L.NewFunction(luaNote))

	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(src); err != nil {
		return model.Patch{}, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, name, err)
	}

	p := model.NewPatch()
	if v := L.GetGlobal("tempo"); v != lua.LNil {
		n, ok := v.(lua.LNumber)
		if !ok || n != lua.LNumber(math.Trunc(float64(n))) {
			return p, fmt.Errorf("%w: %s: tempo must be a whole number, got %s", ErrInvalidPatch, name, v.Type())
		}
		p.Tempo = int(n)
	}
	if v := L.GetGlobal("master"); v != lua.LNil {
		n, ok := v.(lua.LNumber)
		if !ok {
			return p, fmt.Errorf("%w: %s: master must be a number, got %s", ErrInvalidPatch, name, v.Type())
		}
		p.MasterVolume = utils.Clamp(float64(n), 0, 100)
	}
	if v := L.GetGlobal("voices"); v != lua.LNil {
		tbl, ok := v.(*lua.LTable)
		if !ok {
			return p, fmt.Errorf("%w: %s: voices must be a table, got %s", ErrInvalidPatch, name, v.Type())
		}
		if err := readVoices(tbl, &p); err != nil {
			return p, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, name, err)
		}
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %s: %w", ErrInvalidPatch, name, err)
	}
	return p, nil
}

func readVoices(tbl *lua.LTable, p *model.Patch) error {
	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		n, ok := k.(lua.LNumber)
		i := int(n) - 1
		if !ok || float64(n) != math.Trunc(float64(n)) || model.CheckIndex(i) != nil {
			err = fmt.Errorf("voices key %s is not a slot between 1 and %d", k.String(), model.MaxVoices)
			return
		}
		vt, ok := v.(*lua.LTable)
		if !ok {
			err = fmt.Errorf("voice %d: expected a table, got %s", i+1, v.Type())
			return
		}
		cfg := p.Voices[i]
		cfg.Enabled = true
		if e := readVoice(vt, &cfg); e != nil {
			err = fmt.Errorf("voice %d: %v", i+1, e)
			return
		}
		p.Voices[i] = cfg
	})
	return err
}

// fields reads typed values out of a Lua table, keeping the first error.
type fields struct {
	tbl *lua.LTable
	err error
}

func (f *fields) get(key string) lua.LValue {
	if f.err != nil {
		return lua.LNil
	}
	return f.tbl.RawGetString(key)
}

func (f *fields) number(key string, dst *float64) {
	switch v := f.get(key).(type) {
	case *lua.LNilType:
	case lua.LNumber:
		*dst = float64(v)
	default:
		f.err = fmt.Errorf("%s must be a number, got %s", key, v.Type())
	}
}

func (f *fields) str(key string) (string, bool) {
	switch v := f.get(key).(type) {
	case *lua.LNilType:
	case lua.LString:
		return string(v), true
	default:
		f.err = fmt.Errorf("%s must be a string, got %s", key, v.Type())
	}
	return "", false
}

func (f *fields) boolean(key string, dst *bool) {
	switch v := f.get(key).(type) {
	case *lua.LNilType:
	case lua.LBool:
		*dst = bool(v)
	default:
		f.err = fmt.Errorf("%s must be a boolean, got %s", key, v.Type())
	}
}

func (f *fields) noteValue(key string, dst *beat.NoteValue) {
	s, ok := f.str(key)
	if !ok {
		return
	}
	n, err := beat.ParseNoteValue(s)
	if err != nil {
		f.err = fmt.Errorf("%s: %v", key, err)
		return
	}
	*dst = n
}

func (f *fields) seconds(key string, dst *time.Duration) {
	if f.get(key) == lua.LNil {
		return
	}
	var s float64
	f.number(key, &s)
	if f.err != nil {
		return
	}
	if s < 0 {
		f.err = fmt.Errorf("%s must not be negative", key)
		return
	}
	*dst = time.Duration(s * float64(time.Second))
}

func readVoice(tbl *lua.LTable, cfg *model.VoiceConfig) error {
	f := &fields{tbl: tbl}
	f.boolean("enabled", &cfg.Enabled)
	if s, ok := f.str("instrument"); ok {
		cfg.Instrument = s
	}
	if s, ok := f.str("waveform"); ok {
		k, err := waveform.Parse(s)
		if err != nil {
			return err
		}
		cfg.Waveform = k
	}
	f.number("frequency", &cfg.Frequency)
	if s, ok := f.str("note"); ok {
		hz, err := NoteFrequency(s)
		if err != nil {
			return err
		}
		cfg.Frequency = hz
	}
	f.number("volume", &cfg.Volume)
	f.number("balance", &cfg.Balance)
	f.noteValue("rhythm", &cfg.Rhythm)
	f.noteValue("rest", &cfg.Rest)
	f.seconds("start", &cfg.Life.Start)
	f.seconds("stop", &cfg.Life.End)
	if f.err != nil {
		return f.err
	}
	return cfg.Validate()
}

// luaNote implements note("A4") for scripts.
func luaNote(L *lua.LState) int {
	hz, err := NoteFrequency(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(lua.LNumber(hz))
	return 1
}

var semitones = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// NoteFrequency converts scientific pitch notation such as "A4", "C#3" or
// "Bb2" to Hz in twelve-tone equal temperament.
func NoteFrequency(name string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, name)
	}
	semi, ok := semitones[s[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, name)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		semi++
		rest = rest[1:]
	case 'b':
		semi--
		rest = rest[1:]
	}
	var octave int
	if _, err := fmt.Sscanf(rest, "%d", &octave); err != nil || fmt.Sprint(octave) != rest {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, name)
	}
	key := (octave+1)*12 + semi
	if key < 0 || key > 127 {
		return 0, fmt.Errorf("%w: %q out of MIDI range", ErrUnknownNote, name)
	}
	return utils.MIDIToFreq(key), nil
}
