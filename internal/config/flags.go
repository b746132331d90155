// Package config turns command-line flags and patch scripts into the engine's
// startup settings.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ingyamilmolinar/polyvoice/core/model"
	"github.com/ingyamilmolinar/polyvoice/core/pool"
	"github.com/ingyamilmolinar/polyvoice/internal/audio"
)

const DefaultExportBars = 8

var ErrInvalidFlag = errors.New("config: invalid flag value")

type Config struct {
	Backend      string
	PatchFile    string
	Tempo        int
	Master       float64
	PoolCapacity int
	SampleRate   int
	LogLevel     string
	LogFile      string
	NoTUI        bool
	ExportPath   string
	ExportBars   int

	set map[string]bool
}

func Default() Config {
	return Config{
		Backend:      "oto",
		Tempo:        model.DefaultTempo,
		Master:       model.NewPatch().MasterVolume,
		PoolCapacity: pool.DefaultCapacity,
		SampleRate:   audio.DefaultSampleRate,
		LogLevel:     "info",
		ExportBars:   DefaultExportBars,
		set:          map[string]bool{},
	}
}

// Parse reads args (without the program name). It returns flag.ErrHelp when
// -h is given; usage has then been written to out.
func Parse(name string, args []string, out io.Writer) (Config, error) {
	c := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.Backend, "backend", c.Backend, "audio backend ("+strings.Join(audio.Backends(), ", ")+")")
	fs.StringVar(&c.PatchFile, "patch", "", "Lua patch script to load")
	fs.IntVar(&c.Tempo, "bpm", c.Tempo, "tempo in beats per minute (overrides the patch)")
	fs.Float64Var(&c.Master, "master", c.Master, "master volume 0-100 (overrides the patch)")
	fs.IntVar(&c.PoolCapacity, "pool", c.PoolCapacity, "maximum number of generators")
	fs.IntVar(&c.SampleRate, "sample-rate", c.SampleRate, "output sample rate in Hz")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn, error or none")
	fs.StringVar(&c.LogFile, "log-file", "", "write logs to this file")
	fs.BoolVar(&c.NoTUI, "no-tui", false, "run without the terminal UI")
	fs.StringVar(&c.ExportPath, "export", "", "render the patch to a MIDI file and exit")
	fs.IntVar(&c.ExportBars, "export-bars", c.ExportBars, "number of 4/4 bars to export")

	fs.Usage = func() {
		fs.SetOutput(out)
		fmt.Fprintf(out, "Usage: %s [flags]\n", name)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}

	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if fs.NArg() > 0 {
		return c, fmt.Errorf("%w: unexpected argument %q", ErrInvalidFlag, fs.Arg(0))
	}
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	return c, c.Validate()
}

// Validate checks every value except the backend name, which depends on the
// backends the binary links in; see CheckBackend.
func (c Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("%w: empty -backend", ErrInvalidFlag)
	}
	if c.Tempo <= 0 {
		return fmt.Errorf("%w: -bpm %d", ErrInvalidFlag, c.Tempo)
	}
	if c.Master < 0 || c.Master > 100 {
		return fmt.Errorf("%w: -master %v", ErrInvalidFlag, c.Master)
	}
	if c.PoolCapacity <= 0 {
		return fmt.Errorf("%w: -pool %d", ErrInvalidFlag, c.PoolCapacity)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: -sample-rate %d", ErrInvalidFlag, c.SampleRate)
	}
	if c.ExportBars <= 0 {
		return fmt.Errorf("%w: -export-bars %d", ErrInvalidFlag, c.ExportBars)
	}
	return nil
}

// CheckBackend reports an error unless -backend names one of known, which
// must be sorted as audio.Backends returns it.
func (c Config) CheckBackend(known []string) error {
	i := sort.SearchStrings(known, c.Backend)
	if i == len(known) || known[i] != c.Backend {
		return fmt.Errorf("%w: -backend %q, have %s", ErrInvalidFlag, c.Backend, strings.Join(known, ", "))
	}
	return nil
}

// IsSet reports whether the named flag was given explicitly.
func (c Config) IsSet(name string) bool { return c.set[name] }

// Override applies explicitly given -bpm and -master on top of p.
func (c Config) Override(p *model.Patch) {
	if c.IsSet("bpm") {
		p.Tempo = c.Tempo
	}
	if c.IsSet("master") {
		p.MasterVolume = c.Master
	}
}
