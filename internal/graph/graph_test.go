package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/floorplan/internal/ir"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegisterClass("Layer", Class{Kind: KindLayer})
	reg.MustRegisterClass("Slab", Class{Kind: KindSlab, DependsOn: []Kind{KindFace}, Selectable: true})
	reg.MustRegisterClass("Face", Class{Kind: KindFace, DependsOn: []Kind{KindVertex}})
	reg.MustRegisterClass("Vertex", Class{
		Kind:     KindVertex,
		Defaults: ir.Object{"x": ir.Int(0), "y": ir.Int(0)},
		Tracked:  []string{"x", "y"},
	})
	reg.MustRegisterClass("Wall", Class{
		Kind:        KindWall,
		Defaults:    ir.Object{"length": ir.Int(1000)},
		Selectable:  true,
		Constraints: []ir.ConstraintSpec{{Name: "length", Rule: ir.RuleMin, Field: "length", Value: 100}},
	})
	return reg
}

// mustCreate creates an entity inside its own edit and fails the test on error.
func mustCreate(t *testing.T, g *Graph, typ, id string, parent Handle) *Entity {
	t.Helper()
	var e *Entity
	require.NoError(t, g.Edit(func(m *Mutator) error {
		var err error
		e, err = m.Create(typ, id, parent)
		return err
	}))
	return e
}

func childIDs(g *Graph, h Handle) []string {
	e, ok := g.Lookup(h)
	if !ok {
		return nil
	}
	var ids []string
	e.ForEachChild(func(c *Entity) { ids = append(ids, c.ID()) })
	return ids
}

func TestRegistry_UnknownType(t *testing.T) {
	g := New(NewRegistry())

	err := g.Edit(func(m *Mutator) error {
		_, err := m.Create("UnknownType", "id1", NoHandle)
		return err
	})

	require.Error(t, err)
	assert.True(t, IsUnknownType(err))
	var ute *UnknownTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "UnknownType", ute.Type)
	assert.Equal(t, 0, g.Len())
}

func TestRegistry_RegisterThenCreate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterClass("Grid", Class{Kind: KindGrid}))
	require.NoError(t, reg.RegisterClass("Door", Class{Kind: KindOpening, Selectable: true}))
	g := New(reg)

	e := mustCreate(t, g, "Grid", "id1", NoHandle)

	assert.Equal(t, "Grid", e.Type())
	assert.Equal(t, KindGrid, e.Kind())
	assert.Equal(t, "id1", e.ID())
	assert.Equal(t, NoHandle, e.Parent())
	assert.False(t, e.CanSelect())

	door := mustCreate(t, g, "Door", "d1", NoHandle)
	assert.True(t, door.CanSelect())
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterClass("Grid", Class{Kind: KindGrid}))

	err := reg.RegisterClass("Grid", Class{Kind: KindGrid})

	var dup *DuplicateClassError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Grid", dup.Name)
}

func TestRegistry_InvalidKind(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.RegisterClass("Thing", Class{}))
	assert.Error(t, reg.RegisterClass("Thing", Class{Kind: KindWall, DependsOn: []Kind{Kind(99)}}))
	assert.Error(t, reg.RegisterClass("", Class{Kind: KindWall}))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Independent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.MustRegisterClass("Grid", Class{Kind: KindGrid})

	_, err := b.Lookup("Grid")
	assert.True(t, IsUnknownType(err))
	assert.Equal(t, []string{"Grid"}, a.Names())
}

func TestRegistry_CopiesDescriptor(t *testing.T) {
	reg := NewRegistry()
	defaults := ir.Object{"length": ir.Int(10)}
	reg.MustRegisterClass("Wall", Class{Kind: KindWall, Defaults: defaults})

	defaults["length"] = ir.Int(20)

	c, err := reg.Lookup("Wall")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(10), c.Defaults["length"])
}

func TestMutator_OutsideEdit(t *testing.T) {
	g := New(testRegistry(t))
	var leaked *Mutator
	require.NoError(t, g.Edit(func(m *Mutator) error {
		leaked = m
		return nil
	}))

	_, err := leaked.Create("Layer", "l1", NoHandle)
	assert.ErrorIs(t, err, ErrNotEditing)
	assert.False(t, g.Editing())
	assert.Equal(t, 0, g.Len())
}

func TestEdit_Nested(t *testing.T) {
	g := New(testRegistry(t))

	err := g.Edit(func(m *Mutator) error {
		if err := g.Edit(func(inner *Mutator) error {
			_, err := inner.Create("Layer", "l1", NoHandle)
			return err
		}); err != nil {
			return err
		}
		assert.True(t, g.Editing(), "outer edit still open")
		_, err := m.Create("Layer", "l2", NoHandle)
		return err
	})

	require.NoError(t, err)
	assert.False(t, g.Editing())
	assert.Equal(t, 2, g.Len())
}

func TestCreate_Errors(t *testing.T) {
	g := New(testRegistry(t))
	mustCreate(t, g, "Layer", "l1", NoHandle)

	tests := []struct {
		name   string
		typ    string
		id     string
		parent Handle
		check  func(t *testing.T, err error)
	}{
		{"empty id", "Layer", "", NoHandle, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyID) }},
		{"duplicate id", "Layer", "l1", NoHandle, func(t *testing.T, err error) {
			var dup *DuplicateIDError
			assert.ErrorAs(t, err, &dup)
		}},
		{"missing parent", "Layer", "l2", Handle(42), func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoEntity) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Edit(func(m *Mutator) error {
				_, err := m.Create(tt.typ, tt.id, tt.parent)
				return err
			})
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, 1, g.Len())
		})
	}
}

func TestCreate_CopiesDefaults(t *testing.T) {
	g := New(testRegistry(t))
	v1 := mustCreate(t, g, "Vertex", "v1", NoHandle)
	v2 := mustCreate(t, g, "Vertex", "v2", NoHandle)

	require.NoError(t, g.Edit(func(m *Mutator) error {
		return m.Set(v1.Handle(), "x", ir.Int(5))
	}))

	x, ok := v2.Int("x")
	require.True(t, ok)
	assert.Equal(t, int64(0), x)
	x, _ = v1.Int("x")
	assert.Equal(t, int64(5), x)
}

func TestForEachChild_InsertionOrder(t *testing.T) {
	g := New(testRegistry(t))
	layer := mustCreate(t, g, "Layer", "layer", NoHandle)
	for _, id := range []string{"w3", "w1", "w2"} {
		mustCreate(t, g, "Wall", id, layer.Handle())
	}

	assert.Equal(t, []string{"w3", "w1", "w2"}, childIDs(g, layer.Handle()))

	leaf, _ := g.Resolve("w1")
	visited := 0
	leaf.ForEachChild(func(*Entity) { visited++ })
	assert.Equal(t, 0, visited, "leaves iterate zero children")
}

func TestForEachConstraint_Capability(t *testing.T) {
	g := New(testRegistry(t))
	layer := mustCreate(t, g, "Layer", "layer", NoHandle)
	wall := mustCreate(t, g, "Wall", "w1", layer.Handle())

	assert.False(t, layer.HasConstraints())
	assert.True(t, wall.HasConstraints())

	var got []Constraint
	layer.ForEachConstraint(func(c Constraint) { got = append(got, c) })
	assert.Empty(t, got)

	wall.ForEachConstraint(func(c Constraint) { got = append(got, c) })
	require.Len(t, got, 1)
	assert.Equal(t, "w1:length", got[0].Key())
	assert.Equal(t, ir.RuleMin, got[0].Rule)
	assert.Equal(t, int64(100), got[0].Bound)
	assert.Equal(t, ir.Object{"length": ir.Int(1000)}, got[0].Params)
}

func TestMove(t *testing.T) {
	g := New(testRegistry(t))
	a := mustCreate(t, g, "Layer", "a", NoHandle)
	b := mustCreate(t, g, "Layer", "b", NoHandle)
	w1 := mustCreate(t, g, "Wall", "w1", a.Handle())
	w2 := mustCreate(t, g, "Wall", "w2", b.Handle())
	mustCreate(t, g, "Wall", "w3", b.Handle())

	require.NoError(t, g.Edit(func(m *Mutator) error {
		return m.Move(w1.Handle(), b.Handle(), 1)
	}))

	assert.Empty(t, childIDs(g, a.Handle()))
	assert.Equal(t, []string{"w2", "w1", "w3"}, childIDs(g, b.Handle()))
	assert.Equal(t, b.Handle(), w1.Parent())
	require.NoError(t, g.Verify())

	// Out-of-range index appends; NoHandle detaches.
	require.NoError(t, g.Edit(func(m *Mutator) error {
		if err := m.Move(w2.Handle(), a.Handle(), 99); err != nil {
			return err
		}
		return m.Move(w1.Handle(), NoHandle, -1)
	}))
	assert.Equal(t, []string{"w2"}, childIDs(g, a.Handle()))
	assert.Equal(t, []string{"w3"}, childIDs(g, b.Handle()))
	assert.Contains(t, g.Roots(), w1.Handle())
	require.NoError(t, g.Verify())
}

func TestMove_Cycle(t *testing.T) {
	g := New(testRegistry(t))
	slab := mustCreate(t, g, "Slab", "slab", NoHandle)
	face := mustCreate(t, g, "Face", "face", slab.Handle())

	for _, target := range []Handle{face.Handle(), slab.Handle()} {
		err := g.Edit(func(m *Mutator) error {
			return m.Move(slab.Handle(), target, -1)
		})
		assert.ErrorIs(t, err, ErrCycle)
	}
	assert.Equal(t, NoHandle, slab.Parent())
	require.NoError(t, g.Verify())
}

func TestDestroy_Subtree(t *testing.T) {
	g := New(testRegistry(t))
	layer := mustCreate(t, g, "Layer", "layer", NoHandle)
	slab := mustCreate(t, g, "Slab", "slab", layer.Handle())
	face := mustCreate(t, g, "Face", "face", slab.Handle())
	v := mustCreate(t, g, "Vertex", "v1", face.Handle())
	mustCreate(t, g, "Wall", "w1", layer.Handle())

	require.NoError(t, g.Edit(func(m *Mutator) error {
		return m.Destroy(slab.Handle())
	}))

	assert.Equal(t, 2, g.Len())
	for _, h := range []Handle{slab.Handle(), face.Handle(), v.Handle()} {
		_, ok := g.Lookup(h)
		assert.False(t, ok, "handle %d should be dead", h)
	}
	_, ok := g.Resolve("v1")
	assert.False(t, ok)
	assert.Equal(t, []string{"w1"}, childIDs(g, layer.Handle()))
	require.NoError(t, g.Verify())
}

func TestHandles_NeverReused(t *testing.T) {
	g := New(testRegistry(t))
	first := mustCreate(t, g, "Layer", "l1", NoHandle)
	require.NoError(t, g.Edit(func(m *Mutator) error { return m.Destroy(first.Handle()) }))

	second := mustCreate(t, g, "Layer", "l1", NoHandle)

	assert.NotEqual(t, first.Handle(), second.Handle())
	assert.Greater(t, second.Handle(), first.Handle())
}

func TestWalk_PreOrder(t *testing.T) {
	g := New(testRegistry(t))
	root := mustCreate(t, g, "Layer", "root", NoHandle)
	a := mustCreate(t, g, "Slab", "a", root.Handle())
	mustCreate(t, g, "Face", "a1", a.Handle())
	mustCreate(t, g, "Wall", "b", root.Handle())
	mustCreate(t, g, "Layer", "other", NoHandle)

	var order []string
	require.NoError(t, g.Walk(NoHandle, func(e *Entity) error {
		order = append(order, e.ID())
		return nil
	}))

	assert.Equal(t, []string{"root", "a", "a1", "b", "other"}, order)
}

func TestVerify_DetectsBrokenLinks(t *testing.T) {
	g := New(testRegistry(t))
	layer := mustCreate(t, g, "Layer", "layer", NoHandle)
	wall := mustCreate(t, g, "Wall", "w1", layer.Handle())

	require.NoError(t, g.Edit(func(m *Mutator) error {
		return m.SetChildren(layer.Handle(), nil)
	}))

	err := g.Verify()
	var le *LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, wall.Handle(), le.Handle)
}

func TestDirty_ClearOutsideEdit(t *testing.T) {
	g := New(testRegistry(t))
	face := mustCreate(t, g, "Face", "face", NoHandle)
	require.NoError(t, g.Edit(func(m *Mutator) error { return m.MarkDirty(face.Handle()) }))

	assert.Equal(t, []Handle{face.Handle()}, g.Dirty())

	g.ClearDirty(face.Handle())
	assert.False(t, face.DirtyGeometry())
	assert.Empty(t, g.Dirty())
}

func TestStateHash(t *testing.T) {
	build := func() *Graph {
		g := New(testRegistry(t))
		layer := mustCreate(t, g, "Layer", "layer", NoHandle)
		mustCreate(t, g, "Wall", "w1", layer.Handle())
		return g
	}
	g1, g2 := build(), build()
	assert.Equal(t, g1.StateHash(), g2.StateHash())

	w, _ := g1.Resolve("w1")
	require.NoError(t, g1.Edit(func(m *Mutator) error { return m.MarkDirty(w.Handle()) }))
	assert.Equal(t, g1.StateHash(), g2.StateHash(), "dirty flag is not part of state")

	require.NoError(t, g1.Edit(func(m *Mutator) error { return m.Set(w.Handle(), "length", ir.Int(5)) }))
	assert.NotEqual(t, g1.StateHash(), g2.StateHash())
}

func TestRestorePrimitives(t *testing.T) {
	g := New(testRegistry(t))
	layer := mustCreate(t, g, "Layer", "layer", NoHandle)
	wall := mustCreate(t, g, "Wall", "w1", layer.Handle())
	h := wall.Handle()

	require.NoError(t, g.Edit(func(m *Mutator) error {
		if err := m.SetChildren(layer.Handle(), nil); err != nil {
			return err
		}
		return m.Kill(h)
	}))
	require.NoError(t, g.Verify())

	require.NoError(t, g.Edit(func(m *Mutator) error {
		if _, err := m.Revive(h, "w1", "Wall"); err != nil {
			return err
		}
		if err := m.Link(h, layer.Handle()); err != nil {
			return err
		}
		if err := m.ReplaceFields(h, nil, ir.Object{"length": ir.Int(7)}); err != nil {
			return err
		}
		return m.SetChildren(layer.Handle(), []Handle{h})
	}))

	require.NoError(t, g.Verify())
	revived, ok := g.Resolve("w1")
	require.True(t, ok)
	assert.Equal(t, h, revived.Handle())
	length, _ := revived.Int("length")
	assert.Equal(t, int64(7), length)

	err := g.Edit(func(m *Mutator) error {
		_, err := m.Revive(h, "w2", "Wall")
		return err
	})
	assert.Error(t, err, "live handle cannot be revived")
}

func TestReplaceFields_Named(t *testing.T) {
	g := New(testRegistry(t))
	v := mustCreate(t, g, "Vertex", "v1", NoHandle)

	require.NoError(t, g.Edit(func(m *Mutator) error {
		if err := m.Set(v.Handle(), "label", ir.String("corner")); err != nil {
			return err
		}
		return m.ReplaceFields(v.Handle(), []string{"x", "y"}, ir.Object{"x": ir.Int(3)})
	}))

	assert.Equal(t, ir.Object{"x": ir.Int(3), "label": ir.String("corner")}, v.Fields())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("window")
	assert.Error(t, err)
	assert.False(t, Kind(0).Valid())
	assert.Equal(t, "kind(0)", Kind(0).String())
}
