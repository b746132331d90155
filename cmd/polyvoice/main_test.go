package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"polyvoice", "-h"}, &out, &errOut); code != 0 {
		t.Fatalf("expected exit 0, got %d (%s)", code, errOut.String())
	}
	if !strings.Contains(out.String(), "-backend") {
		t.Fatalf("expected usage on stdout, got %q", out.String())
	}
}

func TestRunBadFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"polyvoice", "-bpm", "-3"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"polyvoice", "-backend", "nope"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	for _, name := range []string{"headless", "oto", "ebiten"} {
		if !strings.Contains(errOut.String(), name) {
			t.Fatalf("expected %q among the listed backends: %s", name, errOut.String())
		}
	}
}

func TestRunExport(t *testing.T) {
	dir := t.TempDir()
	patch := filepath.Join(dir, "patch.lua")
	src := `voices = { { note = "C4", rhythm = "eighth", rest = "eighth" } }`
	if err := os.WriteFile(patch, []byte(src), 0o644); err != nil {
		t.Fatalf("write patch: %v", err)
	}
	out := filepath.Join(dir, "out.mid")

	var stdout, stderr bytes.Buffer
	code := run([]string{"polyvoice", "-patch", patch, "-bpm", "100", "-export", out, "-export-bars", "2", "-log-level", "none"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		t.Fatalf("expected a MIDI file, stat err=%v", err)
	}
}

func TestRunMissingPatch(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"polyvoice", "-patch", filepath.Join(t.TempDir(), "nope.lua"), "-export", "x.mid"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}
