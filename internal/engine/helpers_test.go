package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/txn"
)

var errBoom = errors.New("boom")

// newDocument builds layer -> slab -> face -> [v1, v2] and a wall w1 under
// the layer, and opens a Context on it with deterministic request ids.
func newDocument(t *testing.T, opts ...Option) *Context {
	t.Helper()
	reg := graph.NewRegistry()
	reg.MustRegisterClass("Layer", graph.Class{Kind: graph.KindLayer})
	reg.MustRegisterClass("Slab", graph.Class{Kind: graph.KindSlab, DependsOn: []graph.Kind{graph.KindFace}})
	reg.MustRegisterClass("Face", graph.Class{Kind: graph.KindFace, DependsOn: []graph.Kind{graph.KindVertex}})
	reg.MustRegisterClass("Vertex", graph.Class{
		Kind:     graph.KindVertex,
		Defaults: ir.Object{"x": ir.Int(0), "y": ir.Int(0)},
		Tracked:  []string{"x", "y"},
	})
	reg.MustRegisterClass("Wall", graph.Class{
		Kind:     graph.KindWall,
		Defaults: ir.Object{"x1": ir.Int(0), "y1": ir.Int(0), "x2": ir.Int(0), "y2": ir.Int(0), "length": ir.Int(1000)},
	})

	g := graph.New(reg)
	require.NoError(t, g.Edit(func(m *graph.Mutator) error {
		layer, err := m.Create("Layer", "layer", graph.NoHandle)
		if err != nil {
			return err
		}
		slab, err := m.Create("Slab", "slab", layer.Handle())
		if err != nil {
			return err
		}
		face, err := m.Create("Face", "face", slab.Handle())
		if err != nil {
			return err
		}
		for _, id := range []string{"v1", "v2"} {
			if _, err := m.Create("Vertex", id, face.Handle()); err != nil {
				return err
			}
		}
		_, err = m.Create("Wall", "w1", layer.Handle())
		return err
	}))

	ids := make([]string, 64)
	for i := range ids {
		ids[i] = "req-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	base := []Option{WithIDGenerator(NewFixedGenerator(ids...))}
	return NewContext(g, append(base, opts...)...)
}

func setField(id, field string, v int64) Handler {
	return func(_ *Context, tx *txn.Tx) error {
		e, err := tx.Resolve(id)
		if err != nil {
			return err
		}
		return tx.Set(e.Handle(), field, ir.Int(v))
	}
}

func failing(err error) Handler {
	return func(*Context, *txn.Tx) error { return err }
}

func intField(t *testing.T, c *Context, id, field string) int64 {
	t.Helper()
	e, ok := c.Graph().Resolve(id)
	require.True(t, ok, "entity %s", id)
	v, ok := e.Int(field)
	require.True(t, ok, "field %s.%s", id, field)
	return v
}

func exists(c *Context, id string) bool {
	_, ok := c.Graph().Resolve(id)
	return ok
}
