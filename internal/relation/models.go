package relation

import (
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// JointOptions configures a Joint.
type JointOptions struct {
	A   string `mapstructure:"a" validate:"required"`
	B   string `mapstructure:"b" validate:"required,nefield=A"`
	Gap int64  `mapstructure:"gap" validate:"gte=0"`
}

// Joint connects the end of wall A to the start of wall B, allowing at most
// Gap millimetres between them.
type Joint struct {
	typeName string
	JointOptions
}

func newJoint(typeName string, decode Decoder) (Model, error) {
	j := &Joint{typeName: typeName}
	if err := decode(&j.JointOptions); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Joint) Type() string { return j.typeName }

func (j *Joint) Endpoints() []string { return []string{j.A, j.B} }

func (j *Joint) Fields() ir.Object {
	return ir.Object{
		"a":   ir.String(j.A),
		"b":   ir.String(j.B),
		"gap": ir.Int(j.Gap),
	}
}

// Validate requires both endpoints to be live walls.
func (j *Joint) Validate(g *graph.Graph) error {
	for _, id := range j.Endpoints() {
		if err := requireKind(g, j.typeName, id, graph.KindWall); err != nil {
			return err
		}
	}
	return nil
}

// AlignmentOptions configures an Alignment.
type AlignmentOptions struct {
	Targets []string `mapstructure:"targets" validate:"min=2,unique,dive,required"`
	Axis    string   `mapstructure:"axis" validate:"oneof=x y"`
	Offset  int64    `mapstructure:"offset"`
}

// Alignment keeps its targets on a common line along Axis, each target after
// the first Offset millimetres from the first.
type Alignment struct {
	typeName string
	AlignmentOptions
}

func newAlignment(typeName string, decode Decoder) (Model, error) {
	a := &Alignment{typeName: typeName}
	if err := decode(&a.AlignmentOptions); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Alignment) Type() string { return a.typeName }

func (a *Alignment) Endpoints() []string { return append([]string(nil), a.Targets...) }

func (a *Alignment) Fields() ir.Object {
	targets := make(ir.List, len(a.Targets))
	for i, id := range a.Targets {
		targets[i] = ir.String(id)
	}
	return ir.Object{
		"targets": targets,
		"axis":    ir.String(a.Axis),
		"offset":  ir.Int(a.Offset),
	}
}

// Validate requires every target to be live.
func (a *Alignment) Validate(g *graph.Graph) error {
	for _, id := range a.Targets {
		if _, ok := g.Resolve(id); !ok {
			return fmt.Errorf("relationship %q: target %q: %w", a.typeName, id, graph.ErrNoEntity)
		}
	}
	return nil
}

func requireKind(g *graph.Graph, typeName, id string, kind graph.Kind) error {
	e, ok := g.Resolve(id)
	if !ok {
		return fmt.Errorf("relationship %q: endpoint %q: %w", typeName, id, graph.ErrNoEntity)
	}
	if e.Kind() != kind {
		return fmt.Errorf("relationship %q: endpoint %q is a %s, want %s", typeName, id, e.Kind(), kind)
	}
	return nil
}

// Rule returns the constraint rule a model's entities carry.
func Rule(model string) (string, bool) {
	switch model {
	case ModelJoint:
		return ir.RuleCoincident, true
	case ModelAlignment:
		return ir.RuleAligned, true
	default:
		return "", false
	}
}

// Class returns the graph class relationship entities of spec are created
// from: a selectable Relationship-kind class carrying the model's rule.
func Class(spec ir.RelationshipSpec) (graph.Class, error) {
	rule, ok := Rule(spec.Model)
	if !ok {
		return graph.Class{}, &UnknownModelError{Type: spec.Model}
	}
	return graph.Class{
		Kind:       graph.KindRelationship,
		Selectable: true,
		Constraints: []ir.ConstraintSpec{
			{Name: spec.Model, Rule: rule},
		},
	}, nil
}
