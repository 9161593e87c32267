package txn

import (
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
)

// Restore applies one side of states to the graph: Backward replays the pre
// snapshots in reverse order, Forward replays the post snapshots in order.
//
// Before touching anything it checks that every entity the opposite side
// records as present is live, and that every entity it records as absent is
// not. Either mismatch is a *StaleReferenceError and the graph is left as it
// was. After the replay the graph's links are verified and dirtiness is
// propagated exactly as the original commit did.
func Restore(m *graph.Mutator, states []*State, d Direction) error {
	g := m.Graph()
	for _, s := range states {
		_, live := g.Lookup(s.Handle)
		other := s.other(d)
		switch {
		case other.Present && !live:
			return &StaleReferenceError{Handle: s.Handle, ID: s.ID, Reason: "entity is no longer live"}
		case !other.Present && live:
			return &StaleReferenceError{Handle: s.Handle, ID: s.ID, Reason: "entity is unexpectedly live"}
		}
	}

	if err := apply(m, states, d); err != nil {
		return err
	}
	if err := g.Verify(); err != nil {
		return fmt.Errorf("restore %s: %w", d, err)
	}

	for _, s := range ordered(states, d) {
		if err := propagate(m, s, d); err != nil {
			return err
		}
	}
	return nil
}

// ordered returns states in replay order for d.
func ordered(states []*State, d Direction) []*State {
	out := make([]*State, len(states))
	for i, s := range states {
		if d == Backward {
			out[len(states)-1-i] = s
		} else {
			out[i] = s
		}
	}
	return out
}

func apply(m *graph.Mutator, states []*State, d Direction) error {
	g := m.Graph()
	seq := ordered(states, d)

	// Remove first: a revived entity may reuse the id of one being removed.
	// States list parents before children, so walking backwards removes
	// children first.
	for i := len(states) - 1; i >= 0; i-- {
		s := states[i]
		if s.target(d).Present {
			continue
		}
		if _, live := g.Lookup(s.Handle); live {
			if err := m.Kill(s.Handle); err != nil {
				return fmt.Errorf("restore %s: remove %s: %w", d, s.ID, err)
			}
		}
	}

	for _, s := range states {
		t := s.target(d)
		if !t.Present {
			continue
		}
		if _, live := g.Lookup(s.Handle); !live {
			if _, err := m.Revive(s.Handle, s.ID, t.Type); err != nil {
				return fmt.Errorf("restore %s: revive %s: %w", d, s.ID, err)
			}
		}
	}

	for _, s := range seq {
		t := s.target(d)
		if !t.Present {
			continue
		}
		if err := m.Link(s.Handle, t.Parent); err != nil {
			return err
		}
		if err := m.SetChildren(s.Handle, t.Children); err != nil {
			return err
		}
		if err := m.ReplaceFields(s.Handle, s.Fields, t.Fields); err != nil {
			return err
		}
	}
	return nil
}
