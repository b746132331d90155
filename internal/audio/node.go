package audio

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ingyamilmolinar/polyvoice/core/waveform"
)

// ErrUnavailable is returned when a backend cannot create or resume its
// platform audio context.
var ErrUnavailable = errors.New("audio unavailable")

// Node is anything that can be wired into the graph.
type Node interface {
	Connect(dst Node) error
	Disconnect()
}

// Param is an automatable control value.
type Param interface {
	Value() float64
	SetValue(v float64)
	// SetTargetAtTime approaches target exponentially from startTime on,
	// reaching ~63% of the distance after timeConstant seconds.
	SetTargetAtTime(target, startTime, timeConstant float64)
}

// Generator is a periodic signal source. A Generator may be started and
// stopped any number of times.
type Generator interface {
	Node
	SetWaveform(k waveform.Kind)
	Frequency() Param
	Start(when float64) error
	Stop(when float64) error
}

type Gain interface {
	Node
	Gain() Param
}

type Panner interface {
	Node
	Pan() Param
}

// Context is the platform capability the engine renders through.
type Context interface {
	NewGenerator() (Generator, error)
	NewGain() (Gain, error)
	NewPanner() (Panner, error)
	Destination() Node
	// CurrentTime is the monotonic audio clock in seconds.
	CurrentTime() float64
	Resume() error
	Close() error
}

// Options configures a backend.
type Options struct {
	SampleRate int
}

// Factory opens a backend.
type Factory func(Options) (Context, error)

var (
	backends   = map[string]Factory{}
	backendsMu sync.RWMutex
)

// RegisterBackend makes a backend available to Open by name.
func RegisterBackend(name string, f Factory) {
	backendsMu.Lock()
	backends[name] = f
	backendsMu.Unlock()
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	backendsMu.RUnlock()
	sort.Strings(names)
	return names
}

// Open creates a context on the named backend. Failures wrap ErrUnavailable.
func Open(name string, opts Options) (Context, error) {
	backendsMu.RLock()
	f, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, name)
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	ctx, err := f(opts)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	return ctx, nil
}
