package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
)

func compile(t *testing.T, src, path string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(path))
}

func TestCompileClass(t *testing.T) {
	v := compile(t, `
		class: Wall: {
			kind: "wall"
			fields: {x1: 0, y1: 0, thickness: 100, label: "north", tags: ["ext"], meta: {fire: true}}
			tracked: ["x1", "y1"]
			depends_on: ["opening"]
			selectable: true
			constraints: [{name: "min_thickness", rule: "min", field: "thickness", value: 50}]
		}
	`, "class.Wall")

	spec, err := CompileClass(v)
	require.NoError(t, err)

	assert.Equal(t, "Wall", spec.Name)
	assert.Equal(t, "wall", spec.Kind)
	assert.Equal(t, ir.Object{
		"x1":        ir.Int(0),
		"y1":        ir.Int(0),
		"thickness": ir.Int(100),
		"label":     ir.String("north"),
		"tags":      ir.List{ir.String("ext")},
		"meta":      ir.Object{"fire": ir.Bool(true)},
	}, spec.Fields)
	assert.Equal(t, []string{"x1", "y1"}, spec.Tracked)
	assert.Equal(t, []string{"opening"}, spec.DependsOn)
	assert.True(t, spec.Selectable)
	assert.Equal(t, []ir.ConstraintSpec{
		{Name: "min_thickness", Rule: ir.RuleMin, Field: "thickness", Value: 50},
	}, spec.Constraints)
}

func TestCompileClass_MinimalDefaults(t *testing.T) {
	spec, err := CompileClass(compile(t, `class: Layer: kind: "layer"`, "class.Layer"))
	require.NoError(t, err)

	assert.Equal(t, ir.Object{}, spec.Fields)
	assert.Nil(t, spec.Tracked)
	assert.False(t, spec.Selectable)
	assert.Empty(t, spec.Constraints)
}

func TestCompileClass_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing kind", `class: X: {fields: {a: 1}}`, "kind"},
		{"kind not a string", `class: X: {kind: 3}`, "kind"},
		{"float field", `class: X: {kind: "wall", fields: {a: 1.5}}`, "fields.a"},
		{"fields not a struct", `class: X: {kind: "wall", fields: [1]}`, "fields"},
		{"tracked not strings", `class: X: {kind: "wall", tracked: [1]}`, "tracked[0]"},
		{"constraint without rule", `class: X: {kind: "wall", constraints: [{name: "n"}]}`, "constraints[0].rule"},
		{"constraint bound not int", `class: X: {kind: "wall", constraints: [{name: "n", rule: "min", value: "big"}]}`, "constraints[0].value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileClass(compile(t, tt.src, "class.X"))
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileError_Position(t *testing.T) {
	_, err := CompileClass(compile(t, "class: X: {\n\tkind: \"wall\"\n\tfields: {a: 1.5}\n}", "class.X"))

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "test.cue:3:")
}

func TestCompileRelationship(t *testing.T) {
	spec, err := CompileRelationship(compile(t, `
		relationship: GridAlign: {
			model: "alignment"
			defaults: {axis: "y", offset: 25}
		}
	`, "relationship.GridAlign"))
	require.NoError(t, err)

	assert.Equal(t, ir.RelationshipSpec{
		Name:     "GridAlign",
		Model:    "alignment",
		Defaults: ir.Object{"axis": ir.String("y"), "offset": ir.Int(25)},
	}, *spec)

	_, err = CompileRelationship(compile(t, `relationship: R: defaults: {}`, "relationship.R"))
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "model", ce.Field)
}

func TestLoadString_DeclarationOrder(t *testing.T) {
	cat, err := LoadString("order.cue", `
		class: B: kind: "wall"
		class: A: kind: "slab"
		relationship: J: model: "joint"
	`)
	require.NoError(t, err)

	require.Len(t, cat.Classes, 2)
	assert.Equal(t, "B", cat.Classes[0].Name)
	assert.Equal(t, "A", cat.Classes[1].Name)
	require.Len(t, cat.Relationships, 1)
	assert.Equal(t, "J", cat.Relationships[0].Name)
}

func TestLoadString_Errors(t *testing.T) {
	_, err := LoadString("empty.cue", `other: 1`)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "catalog", ce.Field)

	_, err = LoadString("syntax.cue", `class: {`)
	require.Error(t, err)

	_, err = LoadString("bad.cue", `class: Bad: fields: {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class.Bad")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walls.cue"), []byte(`package plan

class: Wall: {
	kind: "wall"
	fields: {thickness: 100}
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "joints.cue"), []byte(`package plan

relationship: WallJoint: model: "joint"
`), 0o644))

	cat, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, cat.Classes, 1)
	assert.Equal(t, "Wall", cat.Classes[0].Name)
	require.Len(t, cat.Relationships, 1)

	_, err = LoadDir(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cat := &ir.Catalog{
		Classes: []ir.ClassSpec{
			{
				Name:      "Odd",
				Kind:      "tower",
				Fields:    ir.Object{"w": ir.Int(1)},
				Tracked:   []string{"w", "h"},
				DependsOn: []string{"vertex", "cloud"},
				Constraints: []ir.ConstraintSpec{
					{Name: "c", Rule: ir.RuleMin, Field: "w"},
					{Name: "c", Rule: "between"},
					{Name: "d", Rule: ir.RulePositive, Field: "depth"},
				},
			},
			{Name: "Dup", Kind: "wall"},
		},
		Relationships: []ir.RelationshipSpec{
			{Name: "Dup", Model: "joint"},
			{Name: "Spring", Model: "spring"},
		},
	}

	var codes []string
	for _, e := range Validate(cat) {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{
		ErrUnknownKind,
		ErrUnknownDependency,
		ErrUndeclaredTracked,
		ErrDuplicateConstraint,
		ErrInvalidRule,
		ErrConstraintField,
		ErrDuplicateName,
		ErrUnknownModel,
	}, codes)
}

func TestAnalyzeCycles(t *testing.T) {
	acyclic := &ir.Catalog{Classes: []ir.ClassSpec{
		{Name: "Slab", Kind: "slab", DependsOn: []string{"face"}},
		{Name: "Face", Kind: "face", DependsOn: []string{"vertex"}},
		{Name: "Vertex", Kind: "vertex"},
	}}
	assert.Empty(t, AnalyzeCycles(acyclic))

	cyclic := &ir.Catalog{Classes: []ir.ClassSpec{
		{Name: "Face", Kind: "face", DependsOn: []string{"vertex"}},
		{Name: "Vertex", Kind: "vertex", DependsOn: []string{"face"}},
		{Name: "Grid", Kind: "grid", DependsOn: []string{"grid"}},
	}}
	warnings := AnalyzeCycles(cyclic)
	require.Len(t, warnings, 2)
	assert.Equal(t, []string{"face", "vertex", "face"}, warnings[0].Path)
	assert.Equal(t, []string{"grid", "grid"}, warnings[1].Path)
	assert.Contains(t, warnings[0].Message, "face -> vertex -> face")
}

type host struct {
	g   *graph.Graph
	cfg *relation.ConfigRegister
}

func (h *host) Graph() *graph.Graph              { return h.g }
func (h *host) Config() *relation.ConfigRegister { return h.cfg }

func TestBuiltin_InstallsCleanly(t *testing.T) {
	cat, err := Builtin()
	require.NoError(t, err)
	assert.Empty(t, Validate(cat))
	assert.Empty(t, AnalyzeCycles(cat))

	reg := graph.NewRegistry()
	cfg := relation.NewConfigRegister()
	require.NoError(t, Install(reg, cfg, cat))

	assert.Equal(t, []string{
		"Assembly", "Layer", "Wall", "Opening", "Slab", "Face", "Vertex",
		"Room", "Molding", "Grid", "WallJoint", "GridAlign",
	}, reg.Names())
	assert.Equal(t, []string{"WallJoint", "GridAlign"}, cfg.Types())

	wall, err := reg.Lookup("Wall")
	require.NoError(t, err)
	assert.Equal(t, graph.KindWall, wall.Kind)
	assert.True(t, wall.Depends(graph.KindOpening))
	assert.True(t, wall.Constrained())

	slab, err := reg.Lookup("Slab")
	require.NoError(t, err)
	assert.True(t, slab.Depends(graph.KindFace))

	joint, err := reg.Lookup("WallJoint")
	require.NoError(t, err)
	assert.Equal(t, graph.KindRelationship, joint.Kind)
	assert.Equal(t, ir.RuleCoincident, joint.Constraints[0].Rule)
}

func TestInstall_JointUsesCatalogDefaults(t *testing.T) {
	cat, err := Builtin()
	require.NoError(t, err)
	reg := graph.NewRegistry()
	cfg := relation.NewConfigRegister()
	require.NoError(t, Install(reg, cfg, cat))

	g := graph.New(reg)
	require.NoError(t, g.Edit(func(m *graph.Mutator) error {
		if _, err := m.Create("Wall", "w1", graph.NoHandle); err != nil {
			return err
		}
		_, err := m.Create("Wall", "w2", graph.NoHandle)
		return err
	}))

	model, err := relation.NewFactory().Create("WallJoint", &host{g: g, cfg: cfg}, map[string]any{"a": "w1", "b": "w2"})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(10), model.Fields()["gap"])
}

func TestInstall_RejectsInvalidCatalog(t *testing.T) {
	cat := &ir.Catalog{Classes: []ir.ClassSpec{{Name: "X", Kind: "tower"}}}
	err := Install(graph.NewRegistry(), relation.NewConfigRegister(), cat)
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ErrUnknownKind, ve.Code)
}
