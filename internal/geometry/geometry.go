// Package geometry holds the geometry seams the engine calls but does not
// implement.
//
// A Deriver runs inside a commit: it stands for operations such as resetting
// a slab's split after its outline changed. It must write through the
// request's Tx so everything it changes is captured for undo.
//
// A Rebuilder runs after the transaction boundary. Pass walks the entities
// flagged dirtyGeometry, rebuilds them and clears the flags.
package geometry

import (
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/txn"
)

// Deriver is an opaque, synchronous commit-time geometry operation.
type Deriver interface {
	Reset(tx *txn.Tx, h graph.Handle) error
}

// Box is an axis-aligned bounding box in millimetres.
type Box struct {
	MinX, MinY, MaxX, MaxY int64
}

// Fields returns the box as entity fields.
func (b Box) Fields() ir.Object {
	return ir.Object{
		"min_x": ir.Int(b.MinX),
		"min_y": ir.Int(b.MinY),
		"max_x": ir.Int(b.MaxX),
		"max_y": ir.Int(b.MaxY),
	}
}

// Bounds returns the bounding box of every vertex in the subtree under h.
// ok is false when the subtree holds no vertex with integer x and y.
func Bounds(g *graph.Graph, h graph.Handle) (box Box, ok bool, err error) {
	err = g.Walk(h, func(e *graph.Entity) error {
		if e.Kind() != graph.KindVertex {
			return nil
		}
		x, hasX := e.Int("x")
		y, hasY := e.Int("y")
		if !hasX || !hasY {
			return nil
		}
		if !ok {
			box = Box{MinX: x, MinY: y, MaxX: x, MaxY: y}
			ok = true
			return nil
		}
		box.MinX, box.MaxX = min(box.MinX, x), max(box.MaxX, x)
		box.MinY, box.MaxY = min(box.MinY, y), max(box.MaxY, y)
		return nil
	})
	return box, ok, err
}

// UnsupportedKindError is returned when a geometry operation is asked to
// work on an entity kind it has no meaning for.
type UnsupportedKindError struct {
	Op   string
	ID   string
	Kind graph.Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("%s: %s is a %s", e.Op, e.ID, e.Kind)
}

// Extents is the reference Deriver. It rewrites the min_x, min_y, max_x and
// max_y fields of a face, slab or room from the vertices beneath it. Only
// fields whose value changes are written.
type Extents struct{}

var _ Deriver = Extents{}

// Reset recomputes the extents of h.
func (Extents) Reset(tx *txn.Tx, h graph.Handle) error {
	e, ok := tx.Graph().Lookup(h)
	if !ok {
		return fmt.Errorf("extents: handle %d: %w", h, graph.ErrNoEntity)
	}
	switch e.Kind() {
	case graph.KindFace, graph.KindSlab, graph.KindRoom:
	default:
		return &UnsupportedKindError{Op: "extents", ID: e.ID(), Kind: e.Kind()}
	}

	box, found, err := Bounds(tx.Graph(), h)
	if err != nil {
		return err
	}
	fields := box.Fields()
	for _, name := range fields.Keys() {
		cur, has := e.Field(name)
		if !found {
			if has {
				if err := tx.Unset(h, name); err != nil {
					return err
				}
			}
			continue
		}
		if has && ir.Equal(cur, fields[name]) {
			continue
		}
		if err := tx.Set(h, name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}
