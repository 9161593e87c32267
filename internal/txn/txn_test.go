package txn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// fixture builds layer -> slab -> face -> [v1, v2] plus a sibling wall under
// the layer.
type fixture struct {
	g                             *graph.Graph
	layer, slab, face, v1, v2, w1 graph.Handle
}

func newFixture(t *testing.T) *fixture {
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
	reg.MustRegisterClass("Wall", graph.Class{Kind: graph.KindWall, Defaults: ir.Object{"length": ir.Int(1000)}})

	f := &fixture{g: graph.New(reg)}
	require.NoError(t, f.g.Edit(func(m *graph.Mutator) error {
		mk := func(typ, id string, parent graph.Handle) graph.Handle {
			e, err := m.Create(typ, id, parent)
			require.NoError(t, err)
			return e.Handle()
		}
		f.layer = mk("Layer", "layer", graph.NoHandle)
		f.slab = mk("Slab", "slab", f.layer)
		f.face = mk("Face", "face", f.slab)
		f.v1 = mk("Vertex", "v1", f.face)
		f.v2 = mk("Vertex", "v2", f.face)
		f.w1 = mk("Wall", "w1", f.layer)
		return nil
	}))
	return f
}

func (f *fixture) commit(t *testing.T, fieldLevel bool, fn func(tx *Tx) error) ([]*State, error) {
	t.Helper()
	var states []*State
	err := f.g.Edit(func(m *graph.Mutator) error {
		tx := Begin(m, fieldLevel)
		if err := fn(tx); err != nil {
			require.NoError(t, tx.Abort())
			return err
		}
		var err error
		states, err = tx.Finish()
		return err
	})
	return states, err
}

func (f *fixture) restore(states []*State, d Direction) error {
	return f.g.Edit(func(m *graph.Mutator) error {
		return Restore(m, states, d)
	})
}

func (f *fixture) clearDirty() {
	for _, h := range f.g.Dirty() {
		f.g.ClearDirty(h)
	}
}

func (f *fixture) dirty(h graph.Handle) bool {
	e, ok := f.g.Lookup(h)
	return ok && e.DirtyGeometry()
}

func TestModification_RoundTrip(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()

	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.v1, "x", ir.Int(250))
	})
	require.NoError(t, err)
	after := f.g.StateHash()

	require.Len(t, states, 1)
	assert.Equal(t, Modification, states[0].Kind)
	assert.Equal(t, ir.Object{"x": ir.Int(0), "y": ir.Int(0)}, states[0].Pre.Fields)
	assert.Equal(t, ir.Object{"x": ir.Int(250), "y": ir.Int(0)}, states[0].Post.Fields)

	require.NoError(t, f.restore(states, Backward))
	assert.Equal(t, before, f.g.StateHash())

	require.NoError(t, f.restore(states, Forward))
	assert.Equal(t, after, f.g.StateHash())

	// Applying the same side twice changes nothing.
	require.NoError(t, f.restore(states, Forward))
	assert.Equal(t, after, f.g.StateHash())
}

func TestDirtyPropagation(t *testing.T) {
	f := newFixture(t)

	_, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.v1, "x", ir.Int(250))
	})
	require.NoError(t, err)

	assert.True(t, f.dirty(f.face), "face depends on vertices")
	assert.True(t, f.dirty(f.slab), "slab depends on faces")
	assert.False(t, f.dirty(f.layer), "layer does not depend on slabs")
	assert.False(t, f.dirty(f.v1), "the entity itself is not an ancestor")
	assert.False(t, f.dirty(f.v2), "sibling is unrelated")
	assert.False(t, f.dirty(f.w1), "sibling is unrelated")
}

func TestDirtyPropagation_RestoreReDirties(t *testing.T) {
	f := newFixture(t)
	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.v1, "x", ir.Int(250))
	})
	require.NoError(t, err)

	f.clearDirty()
	require.NoError(t, f.restore(states, Backward))
	assert.ElementsMatch(t, []graph.Handle{f.slab, f.face}, f.g.Dirty())

	f.clearDirty()
	require.NoError(t, f.restore(states, Forward))
	assert.ElementsMatch(t, []graph.Handle{f.slab, f.face}, f.g.Dirty())
}

func TestDirtyPropagation_ShortCircuit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.g.Edit(func(m *graph.Mutator) error { return m.MarkDirty(f.face) }))

	_, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.v1, "x", ir.Int(1))
	})
	require.NoError(t, err)

	assert.True(t, f.dirty(f.face))
	assert.False(t, f.dirty(f.slab), "walk stops at the first ancestor already dirty")
}

func TestDirtyPropagation_StopsAtNonDependent(t *testing.T) {
	f := newFixture(t)

	_, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.w1, "length", ir.Int(5))
	})
	require.NoError(t, err)

	assert.Empty(t, f.g.Dirty())
}

func TestCreation_RoundTrip(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()

	var created graph.Handle
	states, err := f.commit(t, true, func(tx *Tx) error {
		e, err := tx.Create("Vertex", "v3", f.face)
		if err != nil {
			return err
		}
		created = e.Handle()
		return tx.Set(created, "x", ir.Int(9))
	})
	require.NoError(t, err)
	after := f.g.StateHash()

	require.Len(t, states, 2)
	assert.Equal(t, f.face, states[0].Handle)
	assert.Equal(t, Modification, states[0].Kind)
	assert.Equal(t, Creation, states[1].Kind)
	assert.Nil(t, states[1].Fields, "creations record the whole field set")
	assert.True(t, f.dirty(f.face))

	require.NoError(t, f.restore(states, Backward))
	assert.Equal(t, before, f.g.StateHash())
	_, ok := f.g.Resolve("v3")
	assert.False(t, ok)

	require.NoError(t, f.restore(states, Forward))
	assert.Equal(t, after, f.g.StateHash())
	e, ok := f.g.Resolve("v3")
	require.True(t, ok)
	assert.Equal(t, created, e.Handle(), "redo revives the same handle")
}

func TestDeletion_RoundTrip(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()

	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Destroy(f.slab)
	})
	require.NoError(t, err)
	after := f.g.StateHash()

	kinds := make([]Kind, len(states))
	ids := make([]string, len(states))
	for i, s := range states {
		kinds[i] = s.Kind
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"layer", "slab", "face", "v1", "v2"}, ids)
	assert.Equal(t, []Kind{Modification, Deletion, Deletion, Deletion, Deletion}, kinds)

	require.NoError(t, f.restore(states, Backward))
	assert.Equal(t, before, f.g.StateHash())
	face, ok := f.g.Lookup(f.face)
	require.True(t, ok)
	assert.Equal(t, []graph.Handle{f.v1, f.v2}, face.Children())
	require.NoError(t, f.g.Verify())

	require.NoError(t, f.restore(states, Forward))
	assert.Equal(t, after, f.g.StateHash())
	assert.Equal(t, 2, f.g.Len())
}

func TestMove_RoundTrip(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()

	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Move(f.w1, f.layer, 0)
	})
	require.NoError(t, err)
	layer, _ := f.g.Lookup(f.layer)
	assert.Equal(t, []graph.Handle{f.w1, f.slab}, layer.Children())

	require.NoError(t, f.restore(states, Backward))
	assert.Equal(t, before, f.g.StateHash())
	assert.Equal(t, []graph.Handle{f.slab, f.w1}, layer.Children())
}

func TestMove_ReparentDirtiesBothParents(t *testing.T) {
	f := newFixture(t)
	var face2 graph.Handle
	require.NoError(t, f.g.Edit(func(m *graph.Mutator) error {
		e, err := m.Create("Face", "face2", f.slab)
		face2 = e.Handle()
		return err
	}))
	f.clearDirty()
	want := []graph.Handle{f.slab, f.face, face2}

	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Move(f.v2, face2, -1)
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, want, f.g.Dirty(), "commit")

	f.clearDirty()
	require.NoError(t, f.restore(states, Backward))
	assert.ElementsMatch(t, want, f.g.Dirty(), "undo")
	face, _ := f.g.Lookup(f.face)
	assert.Equal(t, []graph.Handle{f.v1, f.v2}, face.Children())

	f.clearDirty()
	require.NoError(t, f.restore(states, Forward))
	assert.ElementsMatch(t, want, f.g.Dirty(), "redo")
	assert.False(t, f.dirty(f.layer))
}

func TestFieldLevel_RelevantFields(t *testing.T) {
	f := newFixture(t)

	states, err := f.commit(t, true, func(tx *Tx) error {
		if err := tx.Set(f.v1, "label", ir.String("corner")); err != nil {
			return err
		}
		return tx.Set(f.v1, "x", ir.Int(3))
	})
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Equal(t, []string{"x", "y", "label"}, states[0].Fields)
	assert.Equal(t, ir.Object{"x": ir.Int(0), "y": ir.Int(0)}, states[0].Pre.Fields)

	require.NoError(t, f.restore(states, Backward))
	v1, _ := f.g.Lookup(f.v1)
	_, has := v1.Field("label")
	assert.False(t, has, "label absent in pre snapshot is removed")
}

func TestStructuralOnly_WholeFieldSet(t *testing.T) {
	f := newFixture(t)

	states, err := f.commit(t, false, func(tx *Tx) error {
		return tx.Set(f.v1, "x", ir.Int(3))
	})
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.Nil(t, states[0].Fields)
	assert.False(t, states[0].Pre.Equal(states[0].Post))
}

func TestTrack_UnchangedDoesNotPropagate(t *testing.T) {
	f := newFixture(t)

	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Track(f.v2)
	})
	require.NoError(t, err)

	require.Len(t, states, 1)
	assert.False(t, states[0].Changed())
	assert.Empty(t, f.g.Dirty())
}

func TestCreateThenDestroy_Dropped(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()

	states, err := f.commit(t, true, func(tx *Tx) error {
		e, err := tx.Create("Wall", "tmp", f.layer)
		if err != nil {
			return err
		}
		return tx.Destroy(e.Handle())
	})
	require.NoError(t, err)

	require.Len(t, states, 1, "only the layer remains")
	assert.Equal(t, f.layer, states[0].Handle)
	assert.False(t, states[0].Changed())
	assert.Equal(t, before, f.g.StateHash())
}

func TestAbort_RestoresPre(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()
	boom := errors.New("split failed")

	states, err := f.commit(t, true, func(tx *Tx) error {
		if _, err := tx.Create("Vertex", "v3", f.face); err != nil {
			return err
		}
		if err := tx.Set(f.v1, "x", ir.Int(7)); err != nil {
			return err
		}
		if err := tx.Destroy(f.w1); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, states)
	assert.Equal(t, before, f.g.StateHash())
	assert.Empty(t, f.g.Dirty())
	require.NoError(t, f.g.Verify())
}

func TestTx_FinishedRejectsUse(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.g.Edit(func(m *graph.Mutator) error {
		tx := Begin(m, true)
		_, err := tx.Finish()
		require.NoError(t, err)

		assert.ErrorIs(t, tx.Set(f.v1, "x", ir.Int(1)), ErrFinished)
		_, err = tx.Create("Wall", "w9", graph.NoHandle)
		assert.ErrorIs(t, err, ErrFinished)
		assert.ErrorIs(t, tx.Destroy(f.w1), ErrFinished)
		_, err = tx.Finish()
		assert.ErrorIs(t, err, ErrFinished)
		assert.ErrorIs(t, tx.Abort(), ErrFinished)
		return nil
	}))
}

func TestRestore_StaleReference(t *testing.T) {
	f := newFixture(t)
	first, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.w1, "length", ir.Int(5))
	})
	require.NoError(t, err)
	_, err = f.commit(t, true, func(tx *Tx) error {
		return tx.Destroy(f.w1)
	})
	require.NoError(t, err)
	before := f.g.StateHash()

	err = f.restore(first, Backward)

	require.Error(t, err)
	assert.True(t, IsStaleReference(err))
	var se *StaleReferenceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "w1", se.ID)
	assert.Equal(t, before, f.g.StateHash(), "graph untouched")
}

func TestRestore_UnexpectedlyLive(t *testing.T) {
	f := newFixture(t)
	states, err := f.commit(t, true, func(tx *Tx) error {
		_, err := tx.Create("Wall", "w2", f.layer)
		return err
	})
	require.NoError(t, err)

	// Forward while the creation is still applied.
	err = f.restore(states, Forward)
	assert.True(t, IsStaleReference(err))
}

func TestRestore_DirtyExcludedFromState(t *testing.T) {
	f := newFixture(t)
	before := f.g.StateHash()
	states, err := f.commit(t, true, func(tx *Tx) error {
		return tx.Set(f.v2, "y", ir.Int(4))
	})
	require.NoError(t, err)

	require.NoError(t, f.restore(states, Backward))

	assert.NotEmpty(t, f.g.Dirty())
	assert.Equal(t, before, f.g.StateHash())
}
