package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
)

//go:embed builtin.cue
var builtinSource string

// Builtin returns the home-design catalog shipped with the binary.
func Builtin() (*ir.Catalog, error) {
	cat, err := LoadString("builtin.cue", builtinSource)
	if err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return cat, nil
}

// LoadString compiles a catalog from CUE source. filename is used only in
// error positions.
func LoadString(filename, src string) (*ir.Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// LoadDir compiles the CUE package in dir.
func LoadDir(dir string) (*ir.Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog directory: %s is not a directory", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// Compile extracts every class and relationship from a catalog value, in
// declaration order. It stops at the first compile error.
func Compile(v cue.Value) (*ir.Catalog, error) {
	cat := &ir.Catalog{}

	if err := eachField(v, "class", func(fv cue.Value) error {
		spec, err := CompileClass(fv)
		if err != nil {
			return err
		}
		cat.Classes = append(cat.Classes, *spec)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "relationship", func(fv cue.Value) error {
		spec, err := CompileRelationship(fv)
		if err != nil {
			return err
		}
		cat.Relationships = append(cat.Relationships, *spec)
		return nil
	}); err != nil {
		return nil, err
	}

	if len(cat.Classes) == 0 && len(cat.Relationships) == 0 {
		return nil, &CompileError{Field: "catalog", Message: "no classes or relationships found", Pos: v.Pos()}
	}
	return cat, nil
}

func eachField(v cue.Value, path string, fn func(cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return fmt.Errorf("%s.%s: %w", path, iter.Selector().Unquoted(), err)
		}
	}
	return nil
}

// ClassOf converts a compiled class into a graph class descriptor.
func ClassOf(spec ir.ClassSpec) (graph.Class, error) {
	kind, err := graph.ParseKind(spec.Kind)
	if err != nil {
		return graph.Class{}, fmt.Errorf("class %s: %w", spec.Name, err)
	}
	deps := make([]graph.Kind, 0, len(spec.DependsOn))
	for _, name := range spec.DependsOn {
		k, err := graph.ParseKind(name)
		if err != nil {
			return graph.Class{}, fmt.Errorf("class %s: depends_on: %w", spec.Name, err)
		}
		deps = append(deps, k)
	}
	return graph.Class{
		Kind:        kind,
		Defaults:    spec.Fields,
		Tracked:     spec.Tracked,
		DependsOn:   deps,
		Selectable:  spec.Selectable,
		Constraints: spec.Constraints,
	}, nil
}

// Install registers every class of cat in reg, and every relationship type
// in both cfg and reg. It refuses a catalog that fails Validate.
func Install(reg *graph.Registry, cfg *relation.ConfigRegister, cat *ir.Catalog) error {
	if errs := Validate(cat); len(errs) > 0 {
		return fmt.Errorf("install catalog: %w", errs[0])
	}
	for _, spec := range cat.Classes {
		c, err := ClassOf(spec)
		if err != nil {
			return err
		}
		if err := reg.RegisterClass(spec.Name, c); err != nil {
			return err
		}
	}
	for _, spec := range cat.Relationships {
		c, err := relation.Class(spec)
		if err != nil {
			return fmt.Errorf("relationship %s: %w", spec.Name, err)
		}
		if err := cfg.Register(spec); err != nil {
			return err
		}
		if err := reg.RegisterClass(spec.Name, c); err != nil {
			return err
		}
	}
	return nil
}
