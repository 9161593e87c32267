package relation

import (
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/ir"
)

// ConfigRegister holds the relationship types known to one document.
type ConfigRegister struct {
	configs map[string]ir.RelationshipSpec
	order   []string
}

// NewConfigRegister creates an empty register.
func NewConfigRegister() *ConfigRegister {
	return &ConfigRegister{configs: make(map[string]ir.RelationshipSpec)}
}

// Register adds a relationship type. Names must be unique.
func (r *ConfigRegister) Register(spec ir.RelationshipSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("register relationship: empty name")
	}
	if spec.Model == "" {
		return fmt.Errorf("register relationship %q: empty model", spec.Name)
	}
	if _, exists := r.configs[spec.Name]; exists {
		return fmt.Errorf("relationship %q already registered", spec.Name)
	}
	spec.Defaults = spec.Defaults.Clone()
	r.configs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Lookup returns the config for a relationship type.
func (r *ConfigRegister) Lookup(name string) (ir.RelationshipSpec, bool) {
	spec, ok := r.configs[name]
	if !ok {
		return ir.RelationshipSpec{}, false
	}
	spec.Defaults = spec.Defaults.Clone()
	return spec, true
}

// Types returns the registered names in registration order.
func (r *ConfigRegister) Types() []string {
	return slices.Clone(r.order)
}
