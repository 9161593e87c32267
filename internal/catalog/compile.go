package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/floorplan/internal/ir"
)

// CompileClass parses one class struct, e.g. the value at path class.Wall.
func CompileClass(v cue.Value) (*ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ClassSpec{Name: label(v)}

	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}
	spec.Kind = kind

	spec.Fields = ir.Object{}
	if fv := v.LookupPath(cue.ParsePath("fields")); fv.Exists() {
		obj, err := compileValue(fv, "fields")
		if err != nil {
			return nil, err
		}
		fields, ok := obj.(ir.Object)
		if !ok {
			return nil, &CompileError{Field: "fields", Message: "fields must be a struct", Pos: fv.Pos()}
		}
		spec.Fields = fields
	}

	if spec.Tracked, err = optionalStrings(v, "tracked"); err != nil {
		return nil, err
	}
	if spec.DependsOn, err = optionalStrings(v, "depends_on"); err != nil {
		return nil, err
	}

	if sv := v.LookupPath(cue.ParsePath("selectable")); sv.Exists() {
		b, err := sv.Bool()
		if err != nil {
			return nil, &CompileError{Field: "selectable", Message: "selectable must be a bool", Pos: sv.Pos()}
		}
		spec.Selectable = b
	}

	if spec.Constraints, err = parseConstraints(v); err != nil {
		return nil, err
	}
	return spec, nil
}

// CompileRelationship parses one relationship struct, e.g. the value at path
// relationship.WallJoint.
func CompileRelationship(v cue.Value) (*ir.RelationshipSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.RelationshipSpec{Name: label(v), Defaults: ir.Object{}}

	model, err := requiredString(v, "model")
	if err != nil {
		return nil, err
	}
	spec.Model = model

	if dv := v.LookupPath(cue.ParsePath("defaults")); dv.Exists() {
		obj, err := compileValue(dv, "defaults")
		if err != nil {
			return nil, err
		}
		defaults, ok := obj.(ir.Object)
		if !ok {
			return nil, &CompileError{Field: "defaults", Message: "defaults must be a struct", Pos: dv.Pos()}
		}
		spec.Defaults = defaults
	}
	return spec, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].Unquoted()
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: field + " must be a list of strings", Pos: lv.Pos()}
	}
	var out []string
	for i := 0; iter.Next(); i++ {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func parseConstraints(v cue.Value) ([]ir.ConstraintSpec, error) {
	lv := v.LookupPath(cue.ParsePath("constraints"))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, &CompileError{Field: "constraints", Message: "constraints must be a list", Pos: lv.Pos()}
	}

	var out []ir.ConstraintSpec
	for i := 0; iter.Next(); i++ {
		cv := iter.Value()
		field := fmt.Sprintf("constraints[%d]", i)

		var c ir.ConstraintSpec
		if c.Name, err = requiredString(cv, "name"); err != nil {
			return nil, prefix(field, err)
		}
		if c.Rule, err = requiredString(cv, "rule"); err != nil {
			return nil, prefix(field, err)
		}
		if fv := cv.LookupPath(cue.ParsePath("field")); fv.Exists() {
			if c.Field, err = fv.String(); err != nil {
				return nil, &CompileError{Field: field + ".field", Message: "must be a string", Pos: fv.Pos()}
			}
		}
		if bv := cv.LookupPath(cue.ParsePath("value")); bv.Exists() {
			if c.Value, err = bv.Int64(); err != nil {
				return nil, &CompileError{Field: field + ".value", Message: "must be an integer", Pos: bv.Pos()}
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// compileValue converts a concrete CUE value into an ir.Value.
// Floats are rejected.
func compileValue(v cue.Value, field string) (ir.Value, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "integer must be concrete and fit in 64 bits", Pos: v.Pos()}
		}
		return ir.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := ir.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := compileValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			elem, err := compileValue(iter.Value(), field+"."+name)
			if err != nil {
				return nil, err
			}
			obj[name] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: field, Message: "floats are not allowed; use integer millimetres", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported value kind %s", v.IncompleteKind()), Pos: v.Pos()}
	}
}

func prefix(field string, err error) error {
	if ce, ok := err.(*CompileError); ok {
		return &CompileError{Field: field + "." + ce.Field, Message: ce.Message, Pos: ce.Pos}
	}
	return err
}

// CompileError is a catalog error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
