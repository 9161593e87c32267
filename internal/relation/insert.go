package relation

import (
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/txn"
)

// Insert stores m in the graph as a Relationship entity under parent,
// recording the change on tx. The entity's type must be registered (see
// Class); its fields are the model's fields.
func Insert(tx *txn.Tx, m Model, id string, parent graph.Handle) (*graph.Entity, error) {
	if err := m.Validate(tx.Graph()); err != nil {
		return nil, err
	}
	e, err := tx.Create(m.Type(), id, parent)
	if err != nil {
		return nil, fmt.Errorf("insert relationship %s: %w", id, err)
	}
	if e.Kind() != graph.KindRelationship {
		return nil, fmt.Errorf("insert relationship %s: type %q is a %s", id, m.Type(), e.Kind())
	}
	fields := m.Fields()
	for _, name := range fields.Keys() {
		if err := tx.Set(e.Handle(), name, fields[name]); err != nil {
			return nil, err
		}
	}
	return e, nil
}
