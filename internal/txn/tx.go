package txn

import (
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// Tx records the States of one request while its handler runs. It is only
// valid inside the graph edit that produced its Mutator.
type Tx struct {
	m          *graph.Mutator
	fieldLevel bool
	states     []*State
	byHandle   map[graph.Handle]*State
	touched    map[graph.Handle][]string
	done       bool
}

// Begin starts recording. With fieldLevel set, Modification states keep
// only the fields the entity's class tracks plus any field the request
// wrote; otherwise every state records the whole field set.
func Begin(m *graph.Mutator, fieldLevel bool) *Tx {
	return &Tx{
		m:          m,
		fieldLevel: fieldLevel,
		byHandle:   make(map[graph.Handle]*State),
		touched:    make(map[graph.Handle][]string),
	}
}

// Graph returns the graph for reads.
func (tx *Tx) Graph() *graph.Graph { return tx.m.Graph() }

// FieldLevel reports whether the Tx records field-level snapshots.
func (tx *Tx) FieldLevel() bool { return tx.fieldLevel }

// Resolve returns the live entity with the given id.
func (tx *Tx) Resolve(id string) (*graph.Entity, error) {
	e, ok := tx.Graph().Resolve(id)
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, graph.ErrNoEntity)
	}
	return e, nil
}

// Len returns the number of entities touched so far.
func (tx *Tx) Len() int { return len(tx.states) }

// Track captures the pre snapshot of h if this is its first touch. Handlers
// call it for entities they will change through a collaborator that does not
// go through the Tx.
func (tx *Tx) Track(h graph.Handle) error {
	if tx.done {
		return ErrFinished
	}
	if _, ok := tx.byHandle[h]; ok {
		return nil
	}
	e, ok := tx.Graph().Lookup(h)
	if !ok {
		return fmt.Errorf("track handle %d: %w", h, graph.ErrNoEntity)
	}
	tx.add(&State{
		Handle: h,
		ID:     e.ID(),
		Entity: e.Kind(),
		Pre:    capture(tx.Graph(), h),
	})
	return nil
}

func (tx *Tx) add(s *State) {
	tx.states = append(tx.states, s)
	tx.byHandle[s.Handle] = s
}

func (tx *Tx) trackParent(h graph.Handle) error {
	if h == graph.NoHandle {
		return nil
	}
	return tx.Track(h)
}

// Create creates an entity and records it as a Creation.
func (tx *Tx) Create(typeName, id string, parent graph.Handle) (*graph.Entity, error) {
	if tx.done {
		return nil, ErrFinished
	}
	if err := tx.trackParent(parent); err != nil {
		return nil, err
	}
	e, err := tx.m.Create(typeName, id, parent)
	if err != nil {
		return nil, err
	}
	tx.add(&State{Handle: e.Handle(), ID: id, Entity: e.Kind()})
	return e, nil
}

// Set writes a field.
func (tx *Tx) Set(h graph.Handle, field string, v ir.Value) error {
	if err := tx.Track(h); err != nil {
		return err
	}
	tx.touch(h, field)
	return tx.m.Set(h, field, v)
}

// Unset removes a field.
func (tx *Tx) Unset(h graph.Handle, field string) error {
	if err := tx.Track(h); err != nil {
		return err
	}
	tx.touch(h, field)
	return tx.m.Unset(h, field)
}

func (tx *Tx) touch(h graph.Handle, field string) {
	if !slices.Contains(tx.touched[h], field) {
		tx.touched[h] = append(tx.touched[h], field)
	}
}

// Move reparents h, tracking it and both parents.
func (tx *Tx) Move(h, parent graph.Handle, index int) error {
	if err := tx.Track(h); err != nil {
		return err
	}
	e, _ := tx.Graph().Lookup(h)
	if err := tx.trackParent(e.Parent()); err != nil {
		return err
	}
	if err := tx.trackParent(parent); err != nil {
		return err
	}
	return tx.m.Move(h, parent, index)
}

// Destroy removes h and its subtree, tracking the parent and every node of
// the subtree in pre-order.
func (tx *Tx) Destroy(h graph.Handle) error {
	e, ok := tx.Graph().Lookup(h)
	if !ok {
		return fmt.Errorf("destroy handle %d: %w", h, graph.ErrNoEntity)
	}
	if err := tx.trackParent(e.Parent()); err != nil {
		return err
	}
	if err := tx.Graph().Walk(h, func(n *graph.Entity) error {
		return tx.Track(n.Handle())
	}); err != nil {
		return err
	}
	return tx.m.Destroy(h)
}

// Finish captures post snapshots, classifies every State and propagates
// dirtiness. States for entities created and destroyed within the same
// request are dropped.
func (tx *Tx) Finish() ([]*State, error) {
	if tx.done {
		return nil, ErrFinished
	}
	tx.done = true

	g := tx.Graph()
	kept := tx.states[:0]
	for _, s := range tx.states {
		s.Post = capture(g, s.Handle)
		if !s.Pre.Present && !s.Post.Present {
			continue
		}
		s.Kind = classify(s.Pre, s.Post)
		tx.restrict(s)
		s.changed = !s.Pre.Equal(s.Post)
		kept = append(kept, s)
	}
	tx.states = kept

	for _, s := range tx.states {
		if err := propagate(tx.m, s, Forward); err != nil {
			return nil, err
		}
	}
	return slices.Clone(tx.states), nil
}

// restrict narrows a Modification state to its relevant fields.
func (tx *Tx) restrict(s *State) {
	if !tx.fieldLevel || s.Kind != Modification {
		return
	}
	e, ok := tx.Graph().Lookup(s.Handle)
	if !ok || len(e.Class().Tracked) == 0 {
		return
	}
	names := slices.Clone(e.Class().Tracked)
	for _, f := range tx.touched[s.Handle] {
		if !slices.Contains(names, f) {
			names = append(names, f)
		}
	}
	s.Fields = names
	s.Pre.Fields = s.Pre.Fields.Pick(names...)
	s.Post.Fields = s.Post.Fields.Pick(names...)
}

// Abort puts every touched entity back the way the Tx found it and discards
// the States. Nothing propagates.
func (tx *Tx) Abort() error {
	if tx.done {
		return ErrFinished
	}
	tx.done = true

	g := tx.Graph()
	for _, s := range tx.states {
		s.Post = capture(g, s.Handle)
	}
	err := apply(tx.m, tx.states, Backward)
	tx.states = nil
	return err
}
