package waveform

import "testing"

func TestForInstrument(t *testing.T) {
	if got := ForInstrument("Violin"); got != Sawtooth {
		t.Fatalf("expected violin to map to sawtooth, got %v", got)
	}
	if got := ForInstrument("  church organ "); got != Square {
		t.Fatalf("expected church organ to map to square, got %v", got)
	}
	if got := ForInstrument("theremin"); got != Sine {
		t.Fatalf("expected unmapped instrument to default to sine, got %v", got)
	}
}

func TestProgram(t *testing.T) {
	cases := map[string]uint8{
		"Acoustic Grand Piano": 0,
		"church organ":         19,
		" Violin ":             40,
		"Gunshot":              127,
	}
	for name, want := range cases {
		got, ok := Program(name)
		if !ok || got != want {
			t.Fatalf("Program(%q) = %d, %v; want %d", name, got, ok, want)
		}
	}
	if _, ok := Program("theremin"); ok {
		t.Fatalf("theremin is not a General MIDI instrument")
	}
	seen := map[string]bool{}
	for i, p := range programs {
		if p.name == "" || seen[p.name] {
			t.Fatalf("program %d: missing or duplicate name %q", i, p.name)
		}
		seen[p.name] = true
	}
}

func TestParseRoundTripsString(t *testing.T) {
	for _, k := range []Kind{Sine, Sawtooth, Square, Triangle} {
		got, err := Parse(k.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", k.String(), err)
		}
		if got != k {
			t.Fatalf("Parse(%q) = %v", k.String(), got)
		}
	}
	if _, err := Parse("noise"); err == nil {
		t.Fatalf("expected error for unknown waveform")
	}
}
