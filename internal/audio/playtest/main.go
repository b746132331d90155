// playtest sounds each waveform in turn through one backend, as a quick check
// that the device path works outside the engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ingyamilmolinar/polyvoice/core/waveform"
	"github.com/ingyamilmolinar/polyvoice/internal/audio"
	_ "github.com/ingyamilmolinar/polyvoice/internal/audio/device"
	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
)

func main() {
	backend := flag.String("backend", "oto", "audio backend")
	hz := flag.Float64("hz", 440, "tone frequency")
	dur := flag.Duration("dur", 500*time.Millisecond, "length of each tone")
	level := flag.Float64("gain", 0.3, "output gain 0-1")
	flag.Parse()

	logger := game_log.New(os.Stderr, game_log.LevelInfo).With("playtest")
	if err := play(*backend, *hz, *dur, *level, logger); err != nil {
		fmt.Fprintf(os.Stderr, "playtest: %v\n", err)
		os.Exit(1)
	}
}

func play(backend string, hz float64, dur time.Duration, level float64, logger *game_log.Logger) error {
	ctx, err := audio.Open(backend, audio.Options{})
	if err != nil {
		return err
	}
	defer ctx.Close()
	if err := ctx.Resume(); err != nil {
		return err
	}

	gain, err := ctx.NewGain()
	if err != nil {
		return err
	}
	gain.Gain().SetValue(level)
	if err := gain.Connect(ctx.Destination()); err != nil {
		return err
	}
	gen, err := ctx.NewGenerator()
	if err != nil {
		return err
	}
	if err := gen.Connect(gain); err != nil {
		return err
	}
	gen.Frequency().SetValue(hz)

	for _, k := range []waveform.Kind{waveform.Sine, waveform.Triangle, waveform.Square, waveform.Sawtooth} {
		gen.SetWaveform(k)
		logger.Infof("%v %.1fHz at t=%.3fs", k, hz, ctx.CurrentTime())
		if err := gen.Start(ctx.CurrentTime()); err != nil {
			return err
		}
		time.Sleep(dur)
		if err := gen.Stop(ctx.CurrentTime()); err != nil {
			return err
		}
		time.Sleep(dur / 4)
	}
	return nil
}
