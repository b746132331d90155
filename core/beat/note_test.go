package beat

import (
	"testing"
	"time"
)

func TestParseNoteValue(t *testing.T) {
	cases := map[string]NoteValue{
		"quarter":       Quarter,
		"1/8":           Eighth,
		" Dotted-Half ": DottedHalf,
		"thirty-second": ThirtySecond,
		"":              None,
		"none":          None,
	}
	for in, want := range cases {
		got, err := ParseNoteValue(in)
		if err != nil {
			t.Fatalf("ParseNoteValue(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseNoteValue(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseNoteValue("septuplet"); err == nil {
		t.Fatalf("expected error for unknown note value")
	}
}

func TestTicks(t *testing.T) {
	// 120bpm: a quarter is 500ms, which is 20 ticks of 25ms.
	if got := Quarter.Ticks(120, 25*time.Millisecond); got != 20 {
		t.Fatalf("expected 20 ticks, got %d", got)
	}
	if got := Whole.Ticks(120, 25*time.Millisecond); got != 80 {
		t.Fatalf("expected 80 ticks, got %d", got)
	}
	if got := ThirtySecond.Ticks(300, time.Second); got != 1 {
		t.Fatalf("expected short notes to last at least one tick, got %d", got)
	}
	if got := None.Ticks(120, DefaultInterval); got != 0 {
		t.Fatalf("expected None to be zero ticks, got %d", got)
	}
	if got := Quarter.Ticks(0, DefaultInterval); got != 0 {
		t.Fatalf("expected zero tempo to yield zero ticks, got %d", got)
	}
}
