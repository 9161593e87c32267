package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/ir"
)

// Mutator is the only way to change a graph. It is handed out by Graph.Edit
// and refuses to work once that edit has closed.
//
// The high-level operations (Create, Set, Unset, Move, Destroy) keep parent
// and child links consistent. The restore primitives (Revive, Kill, Link,
// SetChildren, ReplaceFields) do not: they exist so the transaction layer can
// replay a snapshot, and it verifies consistency once the replay is complete.
type Mutator struct {
	g *Graph
}

// Graph returns the graph being edited.
func (m *Mutator) Graph() *Graph { return m.g }

func (m *Mutator) check() error {
	if m.g.editDepth == 0 {
		return ErrNotEditing
	}
	return nil
}

func (m *Mutator) live(h Handle) (*Entity, error) {
	e, ok := m.g.Lookup(h)
	if !ok {
		return nil, entityError(h)
	}
	return e, nil
}

// Create instantiates a registered type under parent (NoHandle for a root).
// The child is appended to the parent's children.
func (m *Mutator) Create(typeName, id string, parent Handle) (*Entity, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	class, err := m.g.reg.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrEmptyID
	}
	if _, taken := m.g.byID[id]; taken {
		return nil, &DuplicateIDError{ID: id}
	}
	var p *Entity
	if parent != NoHandle {
		if p, err = m.live(parent); err != nil {
			return nil, fmt.Errorf("create %s: parent: %w", id, err)
		}
	}

	e := &Entity{
		g:      m.g,
		handle: Handle(len(m.g.slots)),
		id:     id,
		class:  class,
		parent: parent,
		fields: class.Defaults.Clone(),
	}
	m.g.slots = append(m.g.slots, e)
	m.g.byID[id] = e.handle
	if p != nil {
		p.children = append(p.children, e.handle)
	}
	return e, nil
}

// Set assigns a field value.
func (m *Mutator) Set(h Handle, field string, v ir.Value) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	if v == nil {
		v = ir.Null{}
	}
	e.fields[field] = ir.Clone(v)
	return nil
}

// Unset removes a field.
func (m *Mutator) Unset(h Handle, field string) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	delete(e.fields, field)
	return nil
}

// Move reparents h under parent at index (-1 appends). parent may be
// NoHandle to make h a root. Moving an entity under its own subtree fails
// with ErrCycle.
func (m *Mutator) Move(h, parent Handle, index int) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	var p *Entity
	if parent != NoHandle {
		if p, err = m.live(parent); err != nil {
			return fmt.Errorf("move %s: parent: %w", e.id, err)
		}
		if m.g.isAncestor(h, parent) {
			return fmt.Errorf("move %s under %s: %w", e.id, p.id, ErrCycle)
		}
	}

	if old, ok := m.g.Lookup(e.parent); ok {
		old.children = slices.DeleteFunc(old.children, func(c Handle) bool { return c == h })
	}
	e.parent = parent
	if p == nil {
		return nil
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = slices.Insert(p.children, index, h)
	return nil
}

// Destroy removes h and its whole subtree.
func (m *Mutator) Destroy(h Handle) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	if p, ok := m.g.Lookup(e.parent); ok {
		p.children = slices.DeleteFunc(p.children, func(c Handle) bool { return c == h })
	}
	m.destroySubtree(e)
	return nil
}

func (m *Mutator) destroySubtree(e *Entity) {
	for _, ch := range e.children {
		if c, ok := m.g.Lookup(ch); ok {
			m.destroySubtree(c)
		}
	}
	m.g.slots[e.handle] = nil
	delete(m.g.byID, e.id)
}

// MarkDirty sets dirtyGeometry on h.
func (m *Mutator) MarkDirty(h Handle) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// Revive brings an entity back under a handle it held before. The slot must
// be empty and the id unused. Links are left empty; the caller restores them.
func (m *Mutator) Revive(h Handle, id, typeName string) (*Entity, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if h == NoHandle || int(h) >= len(m.g.slots) {
		return nil, fmt.Errorf("revive %s: handle %d was never allocated", id, h)
	}
	if m.g.slots[h] != nil {
		return nil, fmt.Errorf("revive %s: handle %d is live", id, h)
	}
	if _, taken := m.g.byID[id]; taken {
		return nil, &DuplicateIDError{ID: id}
	}
	class, err := m.g.reg.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	e := &Entity{g: m.g, handle: h, id: id, class: class, fields: ir.Object{}}
	m.g.slots[h] = e
	m.g.byID[id] = h
	return e, nil
}

// Kill removes a single entity without touching any links.
func (m *Mutator) Kill(h Handle) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	m.g.slots[h] = nil
	delete(m.g.byID, e.id)
	return nil
}

// Link sets the parent handle of h without touching any child list.
func (m *Mutator) Link(h, parent Handle) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	e.parent = parent
	return nil
}

// SetChildren replaces the child list of h without touching any parent
// handle.
func (m *Mutator) SetChildren(h Handle, children []Handle) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	e.children = slices.Clone(children)
	return nil
}

// ReplaceFields replaces the named fields of h with the values in fields;
// a name missing from fields is removed. A nil names slice replaces the
// whole field set.
func (m *Mutator) ReplaceFields(h Handle, names []string, fields ir.Object) error {
	if err := m.check(); err != nil {
		return err
	}
	e, err := m.live(h)
	if err != nil {
		return err
	}
	if names == nil {
		e.fields = fields.Clone()
		return nil
	}
	for _, name := range names {
		if v, ok := fields[name]; ok {
			e.fields[name] = ir.Clone(v)
		} else {
			delete(e.fields, name)
		}
	}
	return nil
}
