package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/ingyamilmolinar/polyvoice/core/waveform"
)

func chain(t *testing.T, c *SoftContext) (Generator, Gain, Panner) {
	t.Helper()
	g, _ := c.NewGenerator()
	gain, _ := c.NewGain()
	pan, _ := c.NewPanner()
	if err := g.Connect(gain); err != nil {
		t.Fatalf("connect generator: %v", err)
	}
	if err := gain.Connect(pan); err != nil {
		t.Fatalf("connect gain: %v", err)
	}
	if err := pan.Connect(c.Destination()); err != nil {
		t.Fatalf("connect panner: %v", err)
	}
	return g, gain, pan
}

func peak(frames [][2]float64) (l, r float64) {
	for _, f := range frames {
		l = math.Max(l, math.Abs(f[0]))
		r = math.Max(r, math.Abs(f[1]))
	}
	return l, r
}

func TestGeneratorSilentUntilStarted(t *testing.T) {
	c := NewSoftContext(8000)
	g, _, _ := chain(t, c)

	if l, r := peak(c.Render(800)); l != 0 || r != 0 {
		t.Fatalf("expected silence before Start, got %v/%v", l, r)
	}
	g.SetWaveform(waveform.Square)
	if err := g.Start(c.CurrentTime()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if l, _ := peak(c.Render(800)); l == 0 {
		t.Fatalf("expected sound after Start")
	}
	if err := g.Stop(c.CurrentTime()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if l, r := peak(c.Render(800)); l != 0 || r != 0 {
		t.Fatalf("expected silence after Stop, got %v/%v", l, r)
	}
}

func TestPannerHardLeft(t *testing.T) {
	c := NewSoftContext(8000)
	g, _, pan := chain(t, c)
	pan.Pan().SetValue(-1)
	g.SetWaveform(waveform.Square)
	_ = g.Start(0)

	l, r := peak(c.Render(400))
	if l < 0.9 {
		t.Fatalf("expected full level on the left, got %v", l)
	}
	if r > 1e-9 {
		t.Fatalf("expected silence on the right, got %v", r)
	}
}

func TestSetTargetAtTimeApproachesTarget(t *testing.T) {
	c := NewSoftContext(1000)
	_, gain, _ := chain(t, c)
	gain.Gain().SetValue(0)
	gain.Gain().SetTargetAtTime(1, 0, 0.1)

	c.Render(100) // one time constant
	v := gain.Gain().Value()
	if v < 0.55 || v > 0.7 {
		t.Fatalf("expected ~63%% of the way after one time constant, got %v", v)
	}
	c.Render(1000)
	if v := gain.Gain().Value(); math.Abs(v-1) > 1e-3 {
		t.Fatalf("expected ramp to settle at 1, got %v", v)
	}
}

func TestReconnectMovesNode(t *testing.T) {
	c := NewSoftContext(8000)
	g, gain, _ := chain(t, c)
	other, _ := c.NewGain()
	other.Gain().SetValue(0)
	if err := g.Connect(other); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = g.Start(0)
	if l, _ := peak(c.Render(200)); l != 0 {
		t.Fatalf("generator should only feed the unconnected gain, got %v", l)
	}
	_ = gain
}

func TestConnectForeignContext(t *testing.T) {
	a := NewSoftContext(8000)
	b := NewSoftContext(8000)
	g, _ := a.NewGenerator()
	if err := g.Connect(b.Destination()); !errors.Is(err, errForeignNode) {
		t.Fatalf("expected errForeignNode, got %v", err)
	}
}

func TestReadProducesFloat32Stereo(t *testing.T) {
	c := NewSoftContext(8000)
	g, _, _ := chain(t, c)
	g.SetWaveform(waveform.Square)
	_ = g.Start(0)

	buf := make([]byte, 10*BytesPerFrame+3)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 10*BytesPerFrame {
		t.Fatalf("expected %d bytes, got %d", 10*BytesPerFrame, n)
	}
	left := math.Float32frombits(binary.LittleEndian.Uint32(buf))
	if left <= 0 {
		t.Fatalf("expected positive first square sample, got %v", left)
	}
	if got := c.CurrentTime(); math.Abs(got-10.0/8000) > 1e-12 {
		t.Fatalf("expected clock to advance 10 frames, got %v", got)
	}
}

func TestClosedContextRendersSilence(t *testing.T) {
	closed, resumed := 0, 0
	c := NewSoftContext(8000)
	c.AttachDevice(func() error { resumed++; return nil }, func() error { closed++; return nil })
	g, _, _ := chain(t, c)
	_ = g.Start(0)

	if err := c.Resume(); err != nil || resumed != 1 {
		t.Fatalf("expected resume hook once, got %d (%v)", resumed, err)
	}
	_ = c.Close()
	_ = c.Close()
	if closed != 1 {
		t.Fatalf("expected close hook once, got %d", closed)
	}
	buf := make([]byte, 4*BytesPerFrame)
	c.Read(buf)
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("expected silence after Close")
		}
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("nope", Options{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOpenWrapsBackendFailure(t *testing.T) {
	RegisterBackend("broken-test", func(Options) (Context, error) { return nil, errors.New("no device") })
	if _, err := Open("broken-test", Options{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOpenHeadless(t *testing.T) {
	c, err := Open("headless", Options{SampleRate: 22050})
	if err != nil {
		t.Fatalf("Open headless: %v", err)
	}
	defer c.Close()
	if sc, ok := c.(*SoftContext); !ok || sc.SampleRate() != 22050 {
		t.Fatalf("expected 22050Hz soft context, got %T", c)
	}
	found := false
	for _, name := range Backends() {
		if name == "headless" {
			found = true
		}
	}
	if !found {
		t.Fatalf("headless backend not registered: %v", Backends())
	}
}
