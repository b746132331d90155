// Package device registers the audio backends that play through a real output
// device: "oto" and "ebiten". Both pull PCM from an audio.SoftContext.
//
// The backends need cgo and the platform audio headers, so only binaries
// import this package, for its side effects:
//
//	import _ "github.com/ingyamilmolinar/polyvoice/internal/audio/device"
package device

import "time"

// bufferDuration keeps device latency close to one scheduler tick.
const bufferDuration = 20 * time.Millisecond
