package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/ir"
)

// Class describes one registered entity type. It plays the role of a
// constructor: Create copies Defaults into the new entity and the rest of the
// descriptor fixes the entity's capabilities for its lifetime.
type Class struct {
	// Name is the type tag. Set by RegisterClass.
	Name string

	// Kind is the entity category.
	Kind Kind

	// Defaults are the initial field values of a new entity.
	Defaults ir.Object

	// Tracked lists the fields a field-level snapshot captures.
	// Empty means every field is relevant.
	Tracked []string

	// DependsOn lists the kinds of children this class derives its shape
	// from (a face depends on its vertices, a slab on its faces).
	DependsOn []Kind

	// Selectable is the answer to CanSelect.
	Selectable bool

	// Constraints are contributed once per entity. A class with no
	// constraints has no constraint capability.
	Constraints []ir.ConstraintSpec
}

// Constrained reports whether entities of this class carry constraints.
func (c *Class) Constrained() bool {
	return len(c.Constraints) > 0
}

// Depends reports whether this class's shape derives from children of kind k.
func (c *Class) Depends(k Kind) bool {
	return slices.Contains(c.DependsOn, k)
}

// Registry maps type names to classes. Each document is handed its own
// Registry; nothing here is global.
type Registry struct {
	classes map[string]*Class
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// RegisterClass associates a type name with a class descriptor.
// The descriptor is copied; later changes to c do not affect the registry.
func (r *Registry) RegisterClass(name string, c Class) error {
	if name == "" {
		return fmt.Errorf("register class: empty type name")
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("register class %q: invalid kind %s", name, c.Kind)
	}
	if _, exists := r.classes[name]; exists {
		return &DuplicateClassError{Name: name}
	}
	for _, k := range c.DependsOn {
		if !k.Valid() {
			return fmt.Errorf("register class %q: depends on invalid kind %s", name, k)
		}
	}

	cp := c
	cp.Name = name
	cp.Defaults = c.Defaults.Clone()
	cp.Tracked = slices.Clone(c.Tracked)
	cp.DependsOn = slices.Clone(c.DependsOn)
	cp.Constraints = slices.Clone(c.Constraints)

	r.classes[name] = &cp
	r.order = append(r.order, name)
	return nil
}

// MustRegisterClass is like RegisterClass but panics on error.
// Use only for static setup in tests and built-ins.
func (r *Registry) MustRegisterClass(name string, c Class) {
	if err := r.RegisterClass(name, c); err != nil {
		panic(err)
	}
}

// Lookup resolves a type name to its class.
func (r *Registry) Lookup(name string) (*Class, error) {
	c, ok := r.classes[name]
	if !ok {
		return nil, &UnknownTypeError{Type: name}
	}
	return c, nil
}

// Names returns registered type names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.order)
}
