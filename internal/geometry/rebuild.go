package geometry

import (
	"io"
	"log/slog"

	"github.com/roach88/floorplan/internal/graph"
)

// Rebuilder recomputes derived geometry for one entity.
type Rebuilder interface {
	Rebuild(g *graph.Graph, e *graph.Entity) error
}

// Pass is the post-transaction rebuild pass.
type Pass struct {
	r      Rebuilder
	logger *slog.Logger
}

// PassOption configures a Pass.
type PassOption func(*Pass)

// WithLogger sets the logger used to report rebuilds.
func WithLogger(l *slog.Logger) PassOption {
	return func(p *Pass) { p.logger = l }
}

// NewPass creates a rebuild pass around r.
func NewPass(r Rebuilder, opts ...PassOption) *Pass {
	p := &Pass{r: r, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run rebuilds every dirty entity, children before parents, clearing each
// flag once its rebuild succeeds. It returns the ids rebuilt in order. The
// first rebuild error stops the pass; entities not yet rebuilt stay dirty.
func (p *Pass) Run(g *graph.Graph) ([]string, error) {
	var rebuilt []string
	var visit func(h graph.Handle) error
	visit = func(h graph.Handle) error {
		e, ok := g.Lookup(h)
		if !ok {
			return nil
		}
		for _, c := range e.Children() {
			if err := visit(c); err != nil {
				return err
			}
		}
		if !e.DirtyGeometry() {
			return nil
		}
		if err := p.r.Rebuild(g, e); err != nil {
			p.logger.Error("rebuild failed", "entity", e.ID(), "type", e.Type(), "error", err)
			return err
		}
		g.ClearDirty(h)
		rebuilt = append(rebuilt, e.ID())
		return nil
	}

	for _, h := range g.Roots() {
		if err := visit(h); err != nil {
			return rebuilt, err
		}
	}
	p.logger.Debug("rebuild pass complete", "rebuilt", len(rebuilt))
	return rebuilt, nil
}

// Outline is the reference Rebuilder: it caches the bounding box of every
// rebuilt entity.
type Outline struct {
	boxes map[string]Box
}

var _ Rebuilder = (*Outline)(nil)

// NewOutline creates an empty outline cache.
func NewOutline() *Outline {
	return &Outline{boxes: make(map[string]Box)}
}

// Rebuild recomputes and caches the entity's box. Entities with no vertices
// beneath them drop out of the cache.
func (o *Outline) Rebuild(g *graph.Graph, e *graph.Entity) error {
	box, ok, err := Bounds(g, e.Handle())
	if err != nil {
		return err
	}
	if !ok {
		delete(o.boxes, e.ID())
		return nil
	}
	o.boxes[e.ID()] = box
	return nil
}

// Box returns the cached box of an entity.
func (o *Outline) Box(id string) (Box, bool) {
	b, ok := o.boxes[id]
	return b, ok
}
