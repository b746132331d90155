package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/ingyamilmolinar/polyvoice/core/engine"
	"github.com/ingyamilmolinar/polyvoice/core/model"
	"github.com/ingyamilmolinar/polyvoice/internal/audio"
	_ "github.com/ingyamilmolinar/polyvoice/internal/audio/device"
	"github.com/ingyamilmolinar/polyvoice/internal/config"
	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
	"github.com/ingyamilmolinar/polyvoice/internal/midiexport"
	"github.com/ingyamilmolinar/polyvoice/internal/tui"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args[0], args[1:], stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := cfg.CheckBackend(audio.Backends()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	interactive := !cfg.NoTUI && cfg.ExportPath == "" && term.IsTerminal(int(os.Stdout.Fd()))

	var logOut io.Writer = stderr
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Error: open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	case interactive:
		logOut = io.Discard
	}
	logger := game_log.New(logOut, game_log.LevelFromString(cfg.LogLevel))

	patch := model.NewPatch()
	if cfg.PatchFile != "" {
		if patch, err = config.LoadPatch(cfg.PatchFile); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	cfg.Override(&patch)

	if cfg.ExportPath != "" {
		opts := midiexport.Options{Bars: cfg.ExportBars, Logger: logger}
		if err := midiexport.WriteFile(cfg.ExportPath, patch, opts); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %d bars to %s\n", cfg.ExportBars, cfg.ExportPath)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(engine.Options{
		Backend:      cfg.Backend,
		SampleRate:   cfg.SampleRate,
		PoolCapacity: cfg.PoolCapacity,
		Logger:       logger,
	})
	if err := eng.ApplyPatch(patch); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := eng.Initialize(); err != nil {
		fmt.Fprintf(stderr, "audio unavailable: %v\n", err)
		if !interactive {
			return 1
		}
	}
	defer eng.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(runCtx) }()

	code := 0
	if interactive {
		if err := tui.Run(ctx, eng, patch); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = 1
		}
	} else {
		eng.Post(func(e *engine.Engine) { e.StartTransport() })
		logger.Infof("playing %d voices, interrupt to stop", len(patch.Enabled()))
		<-ctx.Done()
	}
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, engine.ErrAudioUnavailable) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		code = 1
	}
	return code
}
