package txn

import "github.com/roach88/floorplan/internal/graph"

// propagate marks the ancestors of a changed state dirty. The walk is
// anchored at the state's parent on side d, falling back to the other side
// when the entity is absent there. A reparented entity dirties both the
// parent it left and the one it joined, whichever way it is applied.
//
// The walk stops at the first ancestor that is already dirty. With a tree
// of single-owner children that is sound; if an entity could be depended on
// along two paths, the second path would be cut short.
func propagate(m *graph.Mutator, s *State, d Direction) error {
	if !s.changed {
		return nil
	}
	anchor, other := s.target(d), s.other(d)
	if !anchor.Present {
		return Propagate(m, s.Entity, other.Parent)
	}
	if err := Propagate(m, s.Entity, anchor.Parent); err != nil {
		return err
	}
	if other.Present && other.Parent != anchor.Parent {
		return Propagate(m, s.Entity, other.Parent)
	}
	return nil
}

// Propagate walks up from parent, marking every ancestor whose class
// depends on the kind of the node below it. It returns the first marking
// error.
func Propagate(m *graph.Mutator, kind graph.Kind, parent graph.Handle) error {
	g := m.Graph()
	for cur := parent; cur != graph.NoHandle; {
		p, ok := g.Lookup(cur)
		if !ok || !p.Class().Depends(kind) || p.DirtyGeometry() {
			return nil
		}
		if err := m.MarkDirty(cur); err != nil {
			return err
		}
		kind = p.Kind()
		cur = p.Parent()
	}
	return nil
}
