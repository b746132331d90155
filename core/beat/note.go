package beat

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// NoteValue is a rhythm or rest selection expressed as a note length.
type NoteValue int

const (
	None NoteValue = iota
	Whole
	DottedHalf
	Half
	DottedQuarter
	Quarter
	DottedEighth
	Eighth
	Triplet
	Sixteenth
	ThirtySecond
)

var noteNames = map[NoteValue]string{
	None:          "none",
	Whole:         "whole",
	DottedHalf:    "dotted-half",
	Half:          "half",
	DottedQuarter: "dotted-quarter",
	Quarter:       "quarter",
	DottedEighth:  "dotted-eighth",
	Eighth:        "eighth",
	Triplet:       "triplet",
	Sixteenth:     "sixteenth",
	ThirtySecond:  "thirty-second",
}

var noteBeats = map[NoteValue]float64{
	Whole:         4,
	DottedHalf:    3,
	Half:          2,
	DottedQuarter: 1.5,
	Quarter:       1,
	DottedEighth:  0.75,
	Eighth:        0.5,
	Triplet:       1.0 / 3,
	Sixteenth:     0.25,
	ThirtySecond:  0.125,
}

func (n NoteValue) String() string {
	if s, ok := noteNames[n]; ok {
		return s
	}
	return fmt.Sprintf("NoteValue(%d)", int(n))
}

// ParseNoteValue accepts the String form plus "1/4" style fractions.
func ParseNoteValue(s string) (NoteValue, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "", "0", "off":
		return None, nil
	case "1", "1/1":
		return Whole, nil
	case "1/2":
		return Half, nil
	case "1/4":
		return Quarter, nil
	case "1/8":
		return Eighth, nil
	case "1/16":
		return Sixteenth, nil
	case "1/32":
		return ThirtySecond, nil
	}
	for n, name := range noteNames {
		if name == key {
			return n, nil
		}
	}
	return None, fmt.Errorf("unknown note value %q", s)
}

// Beats is the length in quarter-note beats; None is zero.
func (n NoteValue) Beats() float64 { return noteBeats[n] }

// Ticks converts the note length to scheduler ticks at bpm. A non-None note
// always lasts at least one tick. A non-positive tempo or interval yields 0.
func (n NoteValue) Ticks(bpm int, interval time.Duration) int {
	beats := n.Beats()
	if beats == 0 || bpm <= 0 || interval <= 0 {
		return 0
	}
	d := beats * 60 / float64(bpm)
	t := int(math.Round(d / interval.Seconds()))
	if t < 1 {
		t = 1
	}
	return t
}
