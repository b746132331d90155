package utils

import "math"

// Clamp limits v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MapRange clamps v to [inLo, inHi] and maps it linearly onto [outLo, outHi].
func MapRange(v, inLo, inHi, outLo, outHi float64) float64 {
	if inHi == inLo {
		return outLo
	}
	v = Clamp(v, inLo, inHi)
	return outLo + (v-inLo)*(outHi-outLo)/(inHi-inLo)
}

// FreqToMIDI returns the nearest MIDI key for a frequency, A4 = 440Hz = 69.
func FreqToMIDI(hz float64) int {
	if hz <= 0 {
		return 0
	}
	n := int(math.Round(69 + 12*math.Log2(hz/440)))
	if n < 0 {
		return 0
	}
	if n > 127 {
		return 127
	}
	return n
}

// MIDIToFreq is the inverse of FreqToMIDI for whole keys.
func MIDIToFreq(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}
