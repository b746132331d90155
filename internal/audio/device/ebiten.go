//go:build !js

package device

import (
	"fmt"
	"time"

	eaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/ingyamilmolinar/polyvoice/internal/audio"
)

func init() {
	audio.RegisterBackend("ebiten", openEbiten)
}

// openEbiten plays the software graph through Ebitengine's audio context.
// Ebitengine allows a single audio context per process, so a second open
// must agree on the sample rate.
func openEbiten(opts audio.Options) (audio.Context, error) {
	soft := audio.NewSoftContext(opts.SampleRate)
	rate := soft.SampleRate()

	actx := eaudio.CurrentContext()
	if actx == nil {
		actx = eaudio.NewContext(rate)
	} else if actx.SampleRate() != rate {
		return nil, fmt.Errorf("ebiten audio context already running at %dHz", actx.SampleRate())
	}

	p, err := actx.NewPlayerF32(soft)
	if err != nil {
		return nil, err
	}
	p.SetBufferSize(bufferDuration + 10*time.Millisecond)
	p.Play()

	soft.AttachDevice(nil, p.Close)
	return soft, nil
}
