//go:build js && wasm

package audio

import (
	"errors"
	"fmt"
	"syscall/js"
	"time"

	"github.com/ingyamilmolinar/polyvoice/core/waveform"
)

// resumeWait bounds how long Resume waits on the browser. Autoplay policy
// keeps a context suspended until a user gesture, which is not a failure.
const resumeWait = 500 * time.Millisecond

func init() {
	RegisterBackend("webaudio", openWebAudio)
}

// try runs f and converts a thrown JavaScript exception into an error.
func try(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if jsErr, ok := r.(js.Error); ok {
				err = errors.New(jsErr.Error())
				return
			}
			panic(r)
		}
	}()
	f()
	return nil
}

type webContext struct {
	ctx  js.Value
	dest *webNode
}

func openWebAudio(opts Options) (Context, error) {
	ctor := js.Global().Get("AudioContext")
	if ctor.IsUndefined() {
		ctor = js.Global().Get("webkitAudioContext")
	}
	if ctor.IsUndefined() {
		return nil, fmt.Errorf("%w: Web Audio API not present", ErrUnavailable)
	}
	var ctx js.Value
	err := try(func() {
		o := js.Global().Get("Object").New()
		o.Set("sampleRate", opts.SampleRate)
		ctx = ctor.New(o)
	})
	if err != nil {
		return nil, err
	}
	return &webContext{ctx: ctx, dest: &webNode{v: ctx.Get("destination")}}, nil
}

func (c *webContext) NewGenerator() (Generator, error) {
	out, err := c.create("createGain")
	if err != nil {
		return nil, err
	}
	g := &webGenerator{ctx: c, webNode: webNode{v: out}, osc: js.Null(), kind: waveform.Sine}
	g.freq = &webFreq{g: g, value: 440}
	return g, nil
}

func (c *webContext) NewGain() (Gain, error) {
	v, err := c.create("createGain")
	if err != nil {
		return nil, err
	}
	return &webGain{webNode{v: v}}, nil
}

func (c *webContext) NewPanner() (Panner, error) {
	v, err := c.create("createStereoPanner")
	if err != nil {
		return nil, err
	}
	return &webPanner{webNode{v: v}}, nil
}

func (c *webContext) create(method string) (js.Value, error) {
	var v js.Value
	err := try(func() { v = c.ctx.Call(method) })
	return v, err
}

func (c *webContext) Destination() Node { return c.dest }

func (c *webContext) CurrentTime() float64 { return c.ctx.Get("currentTime").Float() }

func (c *webContext) Resume() error {
	if c.ctx.Get("state").String() == "running" {
		return nil
	}
	return await(c.ctx.Call("resume"), resumeWait)
}

func (c *webContext) Close() error {
	return await(c.ctx.Call("close"), resumeWait)
}

// await waits for a promise to settle. A promise still pending after d is
// treated as success.
func await(promise js.Value, d time.Duration) error {
	done := make(chan error, 1)
	var onOK, onErr js.Func
	onOK = js.FuncOf(func(js.Value, []js.Value) any {
		done <- nil
		return nil
	})
	onErr = js.FuncOf(func(_ js.Value, args []js.Value) any {
		msg := "rejected"
		if len(args) > 0 {
			msg = args[0].Call("toString").String()
		}
		done <- errors.New(msg)
		return nil
	})
	promise.Call("then", onOK).Call("catch", onErr)
	select {
	case err := <-done:
		onOK.Release()
		onErr.Release()
		return err
	case <-time.After(d):
		return nil
	}
}

type nativeNode interface {
	native() js.Value
}

type webNode struct {
	v js.Value
}

func (n *webNode) native() js.Value { return n.v }

func (n *webNode) Connect(dst Node) error {
	d, ok := dst.(nativeNode)
	if !ok {
		return fmt.Errorf("cannot connect to %T", dst)
	}
	return try(func() { n.v.Call("connect", d.native()) })
}

func (n *webNode) Disconnect() {
	_ = try(func() { n.v.Call("disconnect") })
}

type webParam struct {
	v js.Value
}

func (p webParam) Value() float64 { return p.v.Get("value").Float() }

func (p webParam) SetValue(v float64) {
	p.v.Call("cancelScheduledValues", 0)
	p.v.Set("value", v)
}

func (p webParam) SetTargetAtTime(target, startTime, timeConstant float64) {
	p.v.Call("setTargetAtTime", target, startTime, timeConstant)
}

type webGain struct{ webNode }

func (g *webGain) Gain() Param { return webParam{g.v.Get("gain")} }

type webPanner struct{ webNode }

func (p *webPanner) Pan() Param { return webParam{p.v.Get("pan")} }

// webGenerator keeps a stable output gain node and creates a fresh
// OscillatorNode for every Start, since native oscillators are single-use.
type webGenerator struct {
	webNode
	ctx  *webContext
	osc  js.Value
	kind waveform.Kind
	freq *webFreq
}

func (g *webGenerator) live() bool { return !g.osc.IsNull() }

func (g *webGenerator) SetWaveform(k waveform.Kind) {
	g.kind = k
	if g.live() {
		g.osc.Set("type", k.String())
	}
}

func (g *webGenerator) Frequency() Param { return g.freq }

func (g *webGenerator) Start(when float64) error {
	if g.live() {
		_ = g.Stop(when)
	}
	return try(func() {
		osc := g.ctx.ctx.Call("createOscillator")
		osc.Set("type", g.kind.String())
		osc.Get("frequency").Set("value", g.freq.value)
		osc.Call("connect", g.v)
		osc.Call("start", when)
		g.osc = osc
	})
}

func (g *webGenerator) Stop(when float64) error {
	if !g.live() {
		return nil
	}
	osc := g.osc
	g.osc = js.Null()
	return try(func() {
		osc.Call("stop", when)
	})
}

// webFreq remembers the frequency across oscillator instances.
type webFreq struct {
	g     *webGenerator
	value float64
}

func (f *webFreq) Value() float64 {
	if f.g.live() {
		return f.g.osc.Get("frequency").Get("value").Float()
	}
	return f.value
}

func (f *webFreq) SetValue(v float64) {
	f.value = v
	if f.g.live() {
		webParam{f.g.osc.Get("frequency")}.SetValue(v)
	}
}

func (f *webFreq) SetTargetAtTime(target, startTime, timeConstant float64) {
	f.value = target
	if f.g.live() {
		webParam{f.g.osc.Get("frequency")}.SetTargetAtTime(target, startTime, timeConstant)
	}
}
