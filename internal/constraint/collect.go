// Package constraint gathers the constraints carried by an entity subtree
// into the flat, ordered list a solver consumes.
//
// The walk is children-first: every child subtree, left to right, is
// enumerated before the constraints of the node that owns those children.
// Solvers rely on this ordering because a parent's constraints are phrased in
// terms of geometry its children already pinned down.
package constraint

import (
	"errors"
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
)

// CycleError is returned when the walk reaches an entity it already visited.
// The graph is a tree by construction, so this always means corruption and
// callers should treat it as fatal.
type CycleError struct {
	Handle graph.Handle
	ID     string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("constraint walk reached %s (handle %d) twice", e.ID, e.Handle)
}

// Unwrap lets errors.Is match graph.ErrCycle.
func (e *CycleError) Unwrap() error { return graph.ErrCycle }

// IsCycleError reports whether err is or wraps a CycleError.
func IsCycleError(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// Collect walks the subtree rooted at root and calls fn for every
// constraint, children before self. A root of graph.NoHandle walks every
// root of the graph in handle order. Entities without the constraint
// capability are traversed but contribute nothing. An error from fn stops
// the walk and is returned unchanged.
func Collect(g *graph.Graph, root graph.Handle, fn func(c graph.Constraint) error) error {
	w := walker{g: g, seen: make(map[graph.Handle]bool), fn: fn}
	if root != graph.NoHandle {
		return w.visit(root)
	}
	for _, h := range g.Roots() {
		if err := w.visit(h); err != nil {
			return err
		}
	}
	return nil
}

// CollectAll returns the constraints of the subtree in walk order.
func CollectAll(g *graph.Graph, root graph.Handle) ([]graph.Constraint, error) {
	var out []graph.Constraint
	err := Collect(g, root, func(c graph.Constraint) error {
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type walker struct {
	g    *graph.Graph
	seen map[graph.Handle]bool
	fn   func(graph.Constraint) error
}

func (w *walker) visit(h graph.Handle) error {
	e, ok := w.g.Lookup(h)
	if !ok {
		return fmt.Errorf("collect constraints: handle %d: %w", h, graph.ErrNoEntity)
	}
	if w.seen[h] {
		return &CycleError{Handle: h, ID: e.ID()}
	}
	w.seen[h] = true

	for _, child := range e.Children() {
		if err := w.visit(child); err != nil {
			return err
		}
	}

	if !e.HasConstraints() {
		return nil
	}
	var err error
	e.ForEachConstraint(func(c graph.Constraint) {
		if err == nil {
			err = w.fn(c)
		}
	})
	return err
}
