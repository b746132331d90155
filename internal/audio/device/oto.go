//go:build !js

package device

import (
	"github.com/ebitengine/oto/v3"

	"github.com/ingyamilmolinar/polyvoice/internal/audio"
)

func init() {
	audio.RegisterBackend("oto", openOto)
}

func openOto(opts audio.Options) (audio.Context, error) {
	soft := audio.NewSoftContext(opts.SampleRate)
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   soft.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	p := ctx.NewPlayer(soft)
	p.SetBufferSize(int(bufferDuration.Seconds()*float64(soft.SampleRate())) * audio.BytesPerFrame)
	p.Play()

	soft.AttachDevice(ctx.Resume, func() error {
		err := p.Close()
		_ = ctx.Suspend()
		return err
	})
	return soft, nil
}
