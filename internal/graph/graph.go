package graph

import (
	"fmt"

	"github.com/roach88/floorplan/internal/ir"
)

// Graph is the arena that owns every entity of one document. It is the
// document "manager": it resolves ids and handles back to live entities.
type Graph struct {
	reg       *Registry
	slots     []*Entity // index = handle; slot 0 is never used
	byID      map[string]Handle
	editDepth int
}

// New creates an empty graph bound to the given registry.
func New(reg *Registry) *Graph {
	return &Graph{
		reg:   reg,
		slots: make([]*Entity, 1),
		byID:  make(map[string]Handle),
	}
}

// Registry returns the registry this graph creates entities from.
func (g *Graph) Registry() *Registry { return g.reg }

// Lookup returns the live entity behind a handle.
func (g *Graph) Lookup(h Handle) (*Entity, bool) {
	if int(h) >= len(g.slots) {
		return nil, false
	}
	e := g.slots[h]
	return e, e != nil
}

// Resolve returns the live entity with the given id.
func (g *Graph) Resolve(id string) (*Entity, bool) {
	h, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return g.Lookup(h)
}

// Len returns the number of live entities.
func (g *Graph) Len() int { return len(g.byID) }

// Roots returns the live parentless entities in handle order.
func (g *Graph) Roots() []Handle {
	var roots []Handle
	for _, e := range g.slots {
		if e != nil && e.parent == NoHandle {
			roots = append(roots, e.handle)
		}
	}
	return roots
}

// Editing reports whether an Edit is in progress.
func (g *Graph) Editing() bool { return g.editDepth > 0 }

// Edit opens the edit gate for the duration of fn. Edits nest; the gate
// closes when the outermost Edit returns.
func (g *Graph) Edit(fn func(m *Mutator) error) error {
	g.editDepth++
	defer func() { g.editDepth-- }()
	return fn(&Mutator{g: g})
}

// Walk visits the subtree under root in pre-order. NoHandle walks every root.
// Returning an error from fn stops the walk.
func (g *Graph) Walk(root Handle, fn func(e *Entity) error) error {
	if root == NoHandle {
		for _, h := range g.Roots() {
			if err := g.Walk(h, fn); err != nil {
				return err
			}
		}
		return nil
	}
	e, ok := g.Lookup(root)
	if !ok {
		return entityError(root)
	}
	if err := fn(e); err != nil {
		return err
	}
	for _, h := range e.children {
		if err := g.Walk(h, fn); err != nil {
			return err
		}
	}
	return nil
}

// Dirty returns handles of live entities with dirtyGeometry set, in handle
// order.
func (g *Graph) Dirty() []Handle {
	var out []Handle
	for _, e := range g.slots {
		if e != nil && e.dirty {
			out = append(out, e.handle)
		}
	}
	return out
}

// ClearDirty clears dirtyGeometry. It is the one mutation allowed outside an
// edit: the rebuild pass runs after the transaction boundary.
func (g *Graph) ClearDirty(h Handle) {
	if e, ok := g.Lookup(h); ok {
		e.dirty = false
	}
}

// Verify checks that parent and child links agree for every live entity.
func (g *Graph) Verify() error {
	for _, e := range g.slots {
		if e == nil {
			continue
		}
		if e.parent != NoHandle {
			p, ok := g.Lookup(e.parent)
			if !ok {
				return &LinkError{Handle: e.handle, ID: e.id, Message: fmt.Sprintf("parent %d is not live", e.parent)}
			}
			if count(p.children, e.handle) != 1 {
				return &LinkError{Handle: e.handle, ID: e.id, Message: fmt.Sprintf("parent %s does not list it exactly once", p.id)}
			}
		}
		for _, ch := range e.children {
			c, ok := g.Lookup(ch)
			if !ok {
				return &LinkError{Handle: e.handle, ID: e.id, Message: fmt.Sprintf("child %d is not live", ch)}
			}
			if c.parent != e.handle {
				return &LinkError{Handle: e.handle, ID: e.id, Message: fmt.Sprintf("child %s points at parent %d", c.id, c.parent)}
			}
		}
	}
	return nil
}

// StateHash hashes the structure and fields of every live entity.
// dirtyGeometry is derived state and is excluded.
func (g *Graph) StateHash() string {
	entities := make(ir.List, 0, len(g.byID))
	for _, e := range g.slots {
		if e == nil {
			continue
		}
		children := make(ir.List, len(e.children))
		for i, ch := range e.children {
			children[i] = ir.String(g.idOf(ch))
		}
		entities = append(entities, ir.Object{
			"handle":   ir.Int(e.handle),
			"id":       ir.String(e.id),
			"type":     ir.String(e.class.Name),
			"parent":   ir.String(g.idOf(e.parent)),
			"children": children,
			"fields":   e.fields,
		})
	}
	return ir.MustHash(ir.DomainGraph, entities)
}

func (g *Graph) idOf(h Handle) string {
	if e, ok := g.Lookup(h); ok {
		return e.id
	}
	return ""
}

// isAncestor reports whether candidate is h or an ancestor of h.
func (g *Graph) isAncestor(candidate, h Handle) bool {
	seen := 0
	for cur := h; cur != NoHandle; {
		if cur == candidate {
			return true
		}
		e, ok := g.Lookup(cur)
		if !ok {
			return false
		}
		cur = e.parent
		seen++
		if seen > len(g.slots) {
			return true
		}
	}
	return false
}

func count(hs []Handle, h Handle) int {
	n := 0
	for _, x := range hs {
		if x == h {
			n++
		}
	}
	return n
}
