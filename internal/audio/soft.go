package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/ingyamilmolinar/polyvoice/core/waveform"
)

const (
	DefaultSampleRate = 44100
	// BytesPerFrame is one float32 sample for each of two channels.
	BytesPerFrame = 8
)

var errForeignNode = errors.New("node belongs to another context")

// SoftContext renders the node graph in software. It implements Context and
// io.Reader (interleaved float32 little-endian stereo), so any device that
// pulls PCM from a reader can play it.
type SoftContext struct {
	mu         sync.Mutex
	sampleRate float64
	frame      int64
	clock      func() float64
	dest       *softDest

	// Device hooks installed by the output backends.
	resume func() error
	close  func() error
	closed bool
}

// NewSoftContext returns a context whose clock advances as frames are read.
func NewSoftContext(sampleRate int) *SoftContext {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	c := &SoftContext{sampleRate: float64(sampleRate)}
	c.dest = &softDest{ctx: c}
	return c
}

// SampleRate reports the render rate in Hz.
func (c *SoftContext) SampleRate() int { return int(c.sampleRate) }

func (c *SoftContext) NewGenerator() (Generator, error) {
	g := &softGenerator{ctx: c, kind: waveform.Sine, stopAt: -1}
	g.freq = newSoftParam(c, 440)
	return g, nil
}

func (c *SoftContext) NewGain() (Gain, error) {
	return &softGain{ctx: c, gain: newSoftParam(c, 1)}, nil
}

func (c *SoftContext) NewPanner() (Panner, error) {
	return &softPanner{ctx: c, pan: newSoftParam(c, 0)}, nil
}

func (c *SoftContext) Destination() Node { return c.dest }

func (c *SoftContext) CurrentTime() float64 {
	if c.clock != nil {
		return c.clock()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.frame) / c.sampleRate
}

// AttachDevice installs the hooks of the output stream reading from c.
// Resume calls resume and the first Close calls release. Either may be nil.
func (c *SoftContext) AttachDevice(resume, release func() error) {
	c.mu.Lock()
	c.resume, c.close = resume, release
	c.mu.Unlock()
}

func (c *SoftContext) Resume() error {
	if c.resume != nil {
		return c.resume()
	}
	return nil
}

func (c *SoftContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	if c.close != nil {
		return c.close()
	}
	return nil
}

// Read renders len(p)/8 frames. It never returns an error so device players
// keep pulling; a closed context renders silence.
func (c *SoftContext) Read(p []byte) (int, error) {
	frames := len(p) / BytesPerFrame
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < frames; i++ {
		var l, r float64
		if !c.closed {
			l, r = c.dest.render()
		}
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame:], math.Float32bits(float32(clampSample(l))))
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame+4:], math.Float32bits(float32(clampSample(r))))
		c.frame++
	}
	return frames * BytesPerFrame, nil
}

// Render pulls n frames and returns them as float pairs. Used by tests and
// offline tools.
func (c *SoftContext) Render(n int) [][2]float64 {
	out := make([][2]float64, n)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range out {
		l, r := c.dest.render()
		out[i] = [2]float64{clampSample(l), clampSample(r)}
		c.frame++
	}
	return out
}

func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func (c *SoftContext) toFrame(t float64) int64 {
	return int64(math.Round(t * c.sampleRate))
}

type softNode interface {
	Node
	render() (l, r float64)
	inputs() *softInputs
	context() *SoftContext
}

type softInputs struct {
	list []softNode
}

func (s *softInputs) add(n softNode) { s.list = append(s.list, n) }

func (s *softInputs) remove(n softNode) {
	for i, in := range s.list {
		if in == n {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *softInputs) sum() (l, r float64) {
	for _, in := range s.list {
		a, b := in.render()
		l += a
		r += b
	}
	return l, r
}

// softOutput is embedded by every node that can feed another node. A node
// has at most one downstream connection.
type softOutput struct {
	out softNode
}

func connect(self softNode, o *softOutput, dst Node) error {
	d, ok := dst.(softNode)
	if !ok || d.context() != self.context() {
		return errForeignNode
	}
	c := self.context()
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.out != nil {
		o.out.inputs().remove(self)
	}
	o.out = d
	d.inputs().add(self)
	return nil
}

func disconnect(self softNode, o *softOutput) {
	c := self.context()
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.out != nil {
		o.out.inputs().remove(self)
		o.out = nil
	}
}

type softDest struct {
	ctx *SoftContext
	in  softInputs
}

func (d *softDest) Connect(Node) error         { return errors.New("destination has no output") }
func (d *softDest) Disconnect()                {}
func (d *softDest) render() (float64, float64) { return d.in.sum() }
func (d *softDest) inputs() *softInputs        { return &d.in }
func (d *softDest) context() *SoftContext      { return d.ctx }

type softParam struct {
	ctx    *SoftContext
	value  float64
	target float64
	coeff  float64
	from   int64
}

func newSoftParam(c *SoftContext, v float64) *softParam {
	return &softParam{ctx: c, value: v, target: v, coeff: 1}
}

func (p *softParam) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.value
}

func (p *softParam) SetValue(v float64) {
	p.ctx.mu.Lock()
	p.value, p.target, p.coeff = v, v, 1
	p.ctx.mu.Unlock()
}

func (p *softParam) SetTargetAtTime(target, startTime, timeConstant float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.target = target
	p.from = p.ctx.toFrame(startTime)
	if timeConstant <= 0 {
		p.value, p.coeff = target, 1
		return
	}
	p.coeff = 1 - math.Exp(-1/(timeConstant*p.ctx.sampleRate))
}

// advance is called once per rendered frame with the context lock held.
func (p *softParam) advance() float64 {
	if p.value != p.target && p.ctx.frame >= p.from {
		p.value += (p.target - p.value) * p.coeff
		if math.Abs(p.target-p.value) < 1e-6 {
			p.value = p.target
		}
	}
	return p.value
}

type softGenerator struct {
	softOutput
	ctx     *SoftContext
	kind    waveform.Kind
	freq    *softParam
	phase   float64
	running bool
	startAt int64
	stopAt  int64
}

func (g *softGenerator) Connect(dst Node) error { return connect(g, &g.softOutput, dst) }
func (g *softGenerator) Disconnect()            { disconnect(g, &g.softOutput) }
func (g *softGenerator) inputs() *softInputs    { return &softInputs{} }
func (g *softGenerator) context() *SoftContext  { return g.ctx }
func (g *softGenerator) Frequency() Param       { return g.freq }

func (g *softGenerator) SetWaveform(k waveform.Kind) {
	g.ctx.mu.Lock()
	g.kind = k
	g.ctx.mu.Unlock()
}

func (g *softGenerator) Start(when float64) error {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()
	g.running = true
	g.phase = 0
	g.startAt = g.ctx.toFrame(when)
	g.stopAt = -1
	return nil
}

func (g *softGenerator) Stop(when float64) error {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()
	if !g.running {
		return nil
	}
	at := g.ctx.toFrame(when)
	if at <= g.ctx.frame {
		g.running = false
		return nil
	}
	g.stopAt = at
	return nil
}

func (g *softGenerator) render() (float64, float64) {
	f := g.freq.advance()
	frame := g.ctx.frame
	if g.stopAt >= 0 && frame >= g.stopAt {
		g.running = false
		g.stopAt = -1
	}
	if !g.running || frame < g.startAt {
		return 0, 0
	}
	s := shape(g.kind, g.phase)
	g.phase += f / g.ctx.sampleRate
	g.phase -= math.Floor(g.phase)
	return s, s
}

// shape evaluates one period of k at phase in [0,1).
func shape(k waveform.Kind, phase float64) float64 {
	switch k {
	case waveform.Sawtooth:
		return 2*phase - 1
	case waveform.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case waveform.Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

type softGain struct {
	softOutput
	ctx  *SoftContext
	in   softInputs
	gain *softParam
}

func (g *softGain) Connect(dst Node) error { return connect(g, &g.softOutput, dst) }
func (g *softGain) Disconnect()            { disconnect(g, &g.softOutput) }
func (g *softGain) inputs() *softInputs    { return &g.in }
func (g *softGain) context() *SoftContext  { return g.ctx }
func (g *softGain) Gain() Param            { return g.gain }

func (g *softGain) render() (float64, float64) {
	k := g.gain.advance()
	l, r := g.in.sum()
	return l * k, r * k
}

// softPanner is an equal-power stereo panner; mono input is the average of
// both channels.
type softPanner struct {
	softOutput
	ctx *SoftContext
	in  softInputs
	pan *softParam
}

func (p *softPanner) Connect(dst Node) error { return connect(p, &p.softOutput, dst) }
func (p *softPanner) Disconnect()            { disconnect(p, &p.softOutput) }
func (p *softPanner) inputs() *softInputs    { return &p.in }
func (p *softPanner) context() *SoftContext  { return p.ctx }
func (p *softPanner) Pan() Param             { return p.pan }

func (p *softPanner) render() (float64, float64) {
	pos := clampSample(p.pan.advance())
	l, r := p.in.sum()
	m := (l + r) / 2
	x := (pos + 1) * math.Pi / 4
	return m * math.Cos(x), m * math.Sin(x)
}
