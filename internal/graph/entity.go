package graph

import (
	"slices"

	"github.com/roach88/floorplan/internal/ir"
)

// Handle addresses an entity inside its Graph. Handles start at 1 and are
// never reused, so a handle held by a snapshot always means the same entity.
type Handle uint32

// NoHandle is the zero handle: "no parent" or "no entity".
const NoHandle Handle = 0

// Valid reports whether h is not NoHandle.
func (h Handle) Valid() bool {
	return h != NoHandle
}

// Entity is a node of the document graph. Read it freely; mutate it only
// through a Mutator.
type Entity struct {
	g        *Graph
	handle   Handle
	id       string
	class    *Class
	parent   Handle
	children []Handle
	fields   ir.Object
	dirty    bool
}

// Handle returns the entity's arena handle.
func (e *Entity) Handle() Handle { return e.handle }

// ID returns the entity's stable id.
func (e *Entity) ID() string { return e.id }

// Type returns the registered type name.
func (e *Entity) Type() string { return e.class.Name }

// Kind returns the entity category.
func (e *Entity) Kind() Kind { return e.class.Kind }

// Class returns the class descriptor.
func (e *Entity) Class() *Class { return e.class }

// Parent returns the parent handle, or NoHandle for a root.
func (e *Entity) Parent() Handle { return e.parent }

// Children returns a copy of the ordered child handles.
func (e *Entity) Children() []Handle { return slices.Clone(e.children) }

// NumChildren returns the number of direct children.
func (e *Entity) NumChildren() int { return len(e.children) }

// Field returns a field value.
func (e *Entity) Field(name string) (ir.Value, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Int returns an integer field, with ok=false when absent or not an Int.
func (e *Entity) Int(name string) (int64, bool) {
	v, ok := e.fields[name].(ir.Int)
	return int64(v), ok
}

// Text returns a string field, with ok=false when absent or not a String.
func (e *Entity) Text(name string) (string, bool) {
	v, ok := e.fields[name].(ir.String)
	return string(v), ok
}

// Fields returns a deep copy of all fields.
func (e *Entity) Fields() ir.Object { return e.fields.Clone() }

// DirtyGeometry reports whether derived geometry must be recomputed.
func (e *Entity) DirtyGeometry() bool { return e.dirty }

// CanSelect reports whether the entity may be picked in the editor.
func (e *Entity) CanSelect() bool { return e.class.Selectable }

// HasConstraints is the explicit constraint capability marker.
func (e *Entity) HasConstraints() bool { return e.class.Constrained() }

// ForEachChild visits direct children in insertion order. Leaves visit
// nothing.
func (e *Entity) ForEachChild(fn func(child *Entity)) {
	for _, h := range e.children {
		if child, ok := e.g.Lookup(h); ok {
			fn(child)
		}
	}
}

// ForEachConstraint visits this entity's own constraints in declaration
// order. Entities without the capability visit nothing.
func (e *Entity) ForEachConstraint(fn func(c Constraint)) {
	for _, spec := range e.class.Constraints {
		fn(e.constraint(spec))
	}
}

func (e *Entity) constraint(spec ir.ConstraintSpec) Constraint {
	c := Constraint{
		Owner:   e.handle,
		OwnerID: e.id,
		Name:    spec.Name,
		Rule:    spec.Rule,
		Field:   spec.Field,
		Bound:   spec.Value,
		Params:  ir.Object{},
	}
	switch spec.Rule {
	case ir.RuleCoincident, ir.RuleAligned:
		c.Params = e.fields.Clone()
	default:
		if v, ok := e.fields[spec.Field]; ok {
			c.Params[spec.Field] = ir.Clone(v)
		}
	}
	return c
}

// Constraint is one solver input contributed by an entity.
type Constraint struct {
	Owner   Handle
	OwnerID string
	Name    string
	Rule    string
	Field   string
	Bound   int64
	Params  ir.Object // field values the rule reads, copied at collection time
}

// Key returns "owner:name", a stable label for ordering assertions.
func (c Constraint) Key() string {
	return c.OwnerID + ":" + c.Name
}
