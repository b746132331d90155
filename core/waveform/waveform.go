// Package waveform maps instrument names onto the four basic oscillator shapes.
package waveform

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Sine Kind = iota
	Sawtooth
	Square
	Triangle
)

func (k Kind) String() string {
	switch k {
	case Sine:
		return "sine"
	case Sawtooth:
		return "sawtooth"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	default:
		return "unknown"
	}
}

// Parse accepts the names produced by String, case-insensitively.
func Parse(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return Sine, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	case "square", "sqr":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

// programs lists the General MIDI melodic instruments in program order with
// the shape used to approximate each.
var programs = [128]struct {
	name string
	kind Kind
}{
	{"Acoustic Grand Piano", Triangle},
	{"Bright Acoustic Piano", Triangle},
	{"Electric Grand Piano", Triangle},
	{"Honky-tonk Piano", Triangle},
	{"Electric Piano 1", Sine},
	{"Electric Piano 2", Sine},
	{"Harpsichord", Sawtooth},
	{"Clavinet", Square},
	{"Celesta", Sine},
	{"Glockenspiel", Sine},
	{"Music Box", Sine},
	{"Vibraphone", Sine},
	{"Marimba", Triangle},
	{"Xylophone", Triangle},
	{"Tubular Bells", Sine},
	{"Dulcimer", Triangle},
	{"Drawbar Organ", Square},
	{"Percussive Organ", Square},
	{"Rock Organ", Square},
	{"Church Organ", Square},
	{"Reed Organ", Square},
	{"Accordion", Square},
	{"Harmonica", Square},
	{"Tango Accordion", Square},
	{"Acoustic Guitar (nylon)", Triangle},
	{"Acoustic Guitar (steel)", Triangle},
	{"Electric Guitar (jazz)", Triangle},
	{"Electric Guitar (clean)", Triangle},
	{"Electric Guitar (muted)", Triangle},
	{"Overdriven Guitar", Sawtooth},
	{"Distortion Guitar", Sawtooth},
	{"Guitar Harmonics", Sine},
	{"Acoustic Bass", Triangle},
	{"Electric Bass (finger)", Triangle},
	{"Electric Bass (pick)", Sawtooth},
	{"Fretless Bass", Sine},
	{"Slap Bass 1", Sawtooth},
	{"Slap Bass 2", Sawtooth},
	{"Synth Bass 1", Sawtooth},
	{"Synth Bass 2", Square},
	{"Violin", Sawtooth},
	{"Viola", Sawtooth},
	{"Cello", Sawtooth},
	{"Contrabass", Sawtooth},
	{"Tremolo Strings", Sawtooth},
	{"Pizzicato Strings", Triangle},
	{"Orchestral Harp", Triangle},
	{"Timpani", Sine},
	{"String Ensemble 1", Sawtooth},
	{"String Ensemble 2", Sawtooth},
	{"Synth Strings 1", Sawtooth},
	{"Synth Strings 2", Sawtooth},
	{"Choir Aahs", Sine},
	{"Voice Oohs", Sine},
	{"Synth Voice", Sine},
	{"Orchestra Hit", Sawtooth},
	{"Trumpet", Sawtooth},
	{"Trombone", Sawtooth},
	{"Tuba", Sawtooth},
	{"Muted Trumpet", Square},
	{"French Horn", Sawtooth},
	{"Brass Section", Sawtooth},
	{"Synth Brass 1", Sawtooth},
	{"Synth Brass 2", Sawtooth},
	{"Soprano Sax", Square},
	{"Alto Sax", Square},
	{"Tenor Sax", Square},
	{"Baritone Sax", Square},
	{"Oboe", Square},
	{"English Horn", Square},
	{"Bassoon", Square},
	{"Clarinet", Square},
	{"Piccolo", Sine},
	{"Flute", Sine},
	{"Recorder", Sine},
	{"Pan Flute", Sine},
	{"Blown Bottle", Sine},
	{"Shakuhachi", Sine},
	{"Whistle", Sine},
	{"Ocarina", Sine},
	{"Lead 1 (square)", Square},
	{"Lead 2 (sawtooth)", Sawtooth},
	{"Lead 3 (calliope)", Triangle},
	{"Lead 4 (chiff)", Triangle},
	{"Lead 5 (charang)", Sawtooth},
	{"Lead 6 (voice)", Sine},
	{"Lead 7 (fifths)", Sawtooth},
	{"Lead 8 (bass + lead)", Sawtooth},
	{"Pad 1 (new age)", Sine},
	{"Pad 2 (warm)", Triangle},
	{"Pad 3 (polysynth)", Sawtooth},
	{"Pad 4 (choir)", Sine},
	{"Pad 5 (bowed)", Sawtooth},
	{"Pad 6 (metallic)", Square},
	{"Pad 7 (halo)", Sine},
	{"Pad 8 (sweep)", Sawtooth},
	{"FX 1 (rain)", Sine},
	{"FX 2 (soundtrack)", Triangle},
	{"FX 3 (crystal)", Sine},
	{"FX 4 (atmosphere)", Triangle},
	{"FX 5 (brightness)", Sawtooth},
	{"FX 6 (goblins)", Square},
	{"FX 7 (echoes)", Sine},
	{"FX 8 (sci-fi)", Square},
	{"Sitar", Sawtooth},
	{"Banjo", Triangle},
	{"Shamisen", Sawtooth},
	{"Koto", Triangle},
	{"Kalimba", Sine},
	{"Bagpipe", Sawtooth},
	{"Fiddle", Sawtooth},
	{"Shanai", Square},
	{"Tinkle Bell", Sine},
	{"Agogo", Triangle},
	{"Steel Drums", Triangle},
	{"Woodblock", Square},
	{"Taiko Drum", Sine},
	{"Melodic Tom", Sine},
	{"Synth Drum", Square},
	{"Reverse Cymbal", Sawtooth},
	{"Guitar Fret Noise", Sawtooth},
	{"Breath Noise", Sine},
	{"Seashore", Sine},
	{"Bird Tweet", Sine},
	{"Telephone Ring", Square},
	{"Helicopter", Sawtooth},
	{"Applause", Sawtooth},
	{"Gunshot", Square},
}

var byName = func() map[string]int {
	m := make(map[string]int, len(programs))
	for i, p := range programs {
		m[strings.ToLower(p.name)] = i
	}
	return m
}()

func lookup(name string) (int, bool) {
	i, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// ForInstrument returns the waveform used to approximate a General MIDI
// instrument. Unknown names fall back to Sine.
func ForInstrument(name string) Kind {
	if i, ok := lookup(name); ok {
		return programs[i].kind
	}
	return Sine
}

// Program returns the zero-based General MIDI program number of name, as
// sent in a Program Change message.
func Program(name string) (uint8, bool) {
	i, ok := lookup(name)
	return uint8(i), ok
}
