package txn

import (
	"slices"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// Kind classifies what a request did to one entity.
type Kind uint8

const (
	Modification Kind = iota
	Creation
	Deletion
)

func (k Kind) String() string {
	switch k {
	case Creation:
		return "creation"
	case Deletion:
		return "deletion"
	default:
		return "modification"
	}
}

// Direction selects which side of a State Restore applies.
type Direction uint8

const (
	// Backward applies pre snapshots (undo).
	Backward Direction = iota
	// Forward applies post snapshots (redo).
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Snapshot is the recorded condition of one entity at one point in time.
// dirtyGeometry is derived state and is never recorded.
type Snapshot struct {
	Present  bool
	Type     string
	Parent   graph.Handle
	Children []graph.Handle
	Fields   ir.Object
}

func capture(g *graph.Graph, h graph.Handle) Snapshot {
	e, ok := g.Lookup(h)
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		Present:  true,
		Type:     e.Type(),
		Parent:   e.Parent(),
		Children: e.Children(),
		Fields:   e.Fields(),
	}
}

// Equal reports whether two snapshots describe the same entity state.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Present != o.Present {
		return false
	}
	if !s.Present {
		return true
	}
	return s.Type == o.Type &&
		s.Parent == o.Parent &&
		slices.Equal(s.Children, o.Children) &&
		ir.Equal(s.Fields, o.Fields)
}

// State is the recorded effect of one request on one entity.
type State struct {
	Handle graph.Handle
	ID     string
	Entity graph.Kind // category of the entity, anchors dirty propagation
	Kind   Kind

	// Fields names the fields Pre and Post hold. Nil means the whole field
	// set is recorded and restored.
	Fields []string

	Pre  Snapshot
	Post Snapshot

	changed bool
}

// Changed reports whether the request left the entity different from how
// it found it. Unchanged states are restored but do not propagate.
func (s *State) Changed() bool { return s.changed }

func (s *State) target(d Direction) Snapshot {
	if d == Forward {
		return s.Post
	}
	return s.Pre
}

func (s *State) other(d Direction) Snapshot {
	if d == Forward {
		return s.Pre
	}
	return s.Post
}

func classify(pre, post Snapshot) Kind {
	switch {
	case !pre.Present && post.Present:
		return Creation
	case pre.Present && !post.Present:
		return Deletion
	default:
		return Modification
	}
}
