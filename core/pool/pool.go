// Package pool bounds the number of live platform generators shared by all
// voices.
package pool

import (
	"errors"

	"github.com/ingyamilmolinar/polyvoice/internal/audio"
	game_log "github.com/ingyamilmolinar/polyvoice/internal/log"
)

// DefaultCapacity is the number of generators a pool hands out at most.
const DefaultCapacity = 100

// ErrUnknownHandle is returned when releasing a generator that is not
// checked out from this pool.
var ErrUnknownHandle = errors.New("pool: unknown generator handle")

// Factory creates one platform generator.
type Factory func() (audio.Generator, error)

// Generator is a pooled handle. A voice borrows it between Acquire and
// Release and must not keep it afterwards.
type Generator struct {
	id    int
	osc   audio.Generator
	owner *Pool
	inUse bool
}

func (g *Generator) ID() int { return g.id }

// Osc returns the platform generator behind the handle.
func (g *Generator) Osc() audio.Generator { return g.osc }

type Stats struct {
	Capacity int
	InUse    int
	Free     int
}

// Pool is not safe for concurrent use; the engine drives it from a single
// goroutine.
type Pool struct {
	capacity int
	factory  Factory
	created  []*Generator
	free     []*Generator
	inUse    int
	logger   *game_log.Logger
}

func New(capacity int, factory Factory, logger *game_log.Logger) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	if logger == nil {
		logger = game_log.Discard()
	}
	return &Pool{
		capacity: capacity,
		factory:  factory,
		logger:   logger.With("pool"),
	}
}

// Acquire checks out a free generator. It returns false when the pool is
// exhausted or the platform refused to create another generator; callers
// drop the note.
func (p *Pool) Acquire() (*Generator, bool) {
	if p.inUse >= p.capacity {
		p.logger.Debugf("exhausted: %d/%d in use", p.inUse, p.capacity)
		return nil, false
	}
	var g *Generator
	if n := len(p.free); n > 0 {
		g = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		osc, err := p.factory()
		if err != nil {
			p.logger.Warnf("create generator %d: %v", len(p.created), err)
			return nil, false
		}
		g = &Generator{id: len(p.created), osc: osc, owner: p}
		p.created = append(p.created, g)
		p.logger.Debugf("created generator %d", g.id)
	}
	g.inUse = true
	p.inUse++
	return g, true
}

// Release returns g to the free set.
func (p *Pool) Release(g *Generator) error {
	if g == nil || g.owner != p || !g.inUse {
		return ErrUnknownHandle
	}
	g.inUse = false
	p.inUse--
	p.free = append(p.free, g)
	return nil
}

func (p *Pool) Stats() Stats {
	return Stats{
		Capacity: p.capacity,
		InUse:    p.inUse,
		Free:     p.capacity - p.inUse,
	}
}
