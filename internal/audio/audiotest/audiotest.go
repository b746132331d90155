// Package audiotest provides a recording implementation of audio.Context so
// engine code can be exercised without a device.
package audiotest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ingyamilmolinar/polyvoice/core/waveform"
	"github.com/ingyamilmolinar/polyvoice/internal/audio"
)

// Ramp records one SetTargetAtTime call.
type Ramp struct {
	Target, Start, TimeConstant float64
}

type Param struct {
	mu    sync.Mutex
	value float64
	Ramps []Ramp
}

func (p *Param) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *Param) SetValue(v float64) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
}

// SetTargetAtTime jumps straight to target; the ramp is recorded.
func (p *Param) SetTargetAtTime(target, start, tc float64) {
	p.mu.Lock()
	p.value = target
	p.Ramps = append(p.Ramps, Ramp{target, start, tc})
	p.mu.Unlock()
}

// LastRamp returns the most recent ramp, if any.
func (p *Param) LastRamp() (Ramp, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Ramps) == 0 {
		return Ramp{}, false
	}
	return p.Ramps[len(p.Ramps)-1], true
}

// Node tracks where it is connected.
type Node struct {
	Name string
	Out  audio.Node
}

func (n *Node) Connect(dst audio.Node) error {
	if dst == nil {
		return errors.New("nil destination")
	}
	n.Out = dst
	return nil
}

func (n *Node) Disconnect() { n.Out = nil }

type Generator struct {
	Node
	Kind    waveform.Kind
	Freq    Param
	Running bool
	Starts  int
	Stops   int
}

func (g *Generator) SetWaveform(k waveform.Kind) { g.Kind = k }
func (g *Generator) Frequency() audio.Param      { return &g.Freq }

func (g *Generator) Start(float64) error {
	g.Running = true
	g.Starts++
	return nil
}

func (g *Generator) Stop(float64) error {
	g.Running = false
	g.Stops++
	return nil
}

type Gain struct {
	Node
	Level Param
}

func (g *Gain) Gain() audio.Param { return &g.Level }

type Panner struct {
	Node
	Position Param
}

func (p *Panner) Pan() audio.Param { return &p.Position }

// Context is a fake audio.Context. Now is the value CurrentTime reports.
type Context struct {
	Now        float64
	ResumeErr  error
	Generators []*Generator
	Gains      []*Gain
	Panners    []*Panner
	Dest       Node
	Resumes    int
	Closed     bool

	// MaxGenerators makes NewGenerator fail once reached; 0 means unlimited.
	MaxGenerators int
}

func New() *Context {
	return &Context{Dest: Node{Name: "destination"}}
}

func (c *Context) NewGenerator() (audio.Generator, error) {
	if c.MaxGenerators > 0 && len(c.Generators) >= c.MaxGenerators {
		return nil, errors.New("generator limit reached")
	}
	g := &Generator{Node: Node{Name: fmt.Sprintf("gen%d", len(c.Generators))}}
	g.Freq.value = 440
	c.Generators = append(c.Generators, g)
	return g, nil
}

func (c *Context) NewGain() (audio.Gain, error) {
	g := &Gain{Node: Node{Name: fmt.Sprintf("gain%d", len(c.Gains))}}
	g.Level.value = 1
	c.Gains = append(c.Gains, g)
	return g, nil
}

func (c *Context) NewPanner() (audio.Panner, error) {
	p := &Panner{Node: Node{Name: fmt.Sprintf("pan%d", len(c.Panners))}}
	c.Panners = append(c.Panners, p)
	return p, nil
}

func (c *Context) Destination() audio.Node { return &c.Dest }
func (c *Context) CurrentTime() float64    { return c.Now }

func (c *Context) Resume() error {
	c.Resumes++
	return c.ResumeErr
}

func (c *Context) Close() error {
	c.Closed = true
	return nil
}

// Running counts generators currently started.
func (c *Context) Running() int {
	n := 0
	for _, g := range c.Generators {
		if g.Running {
			n++
		}
	}
	return n
}
