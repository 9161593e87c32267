package journal

import (
	"context"
	"fmt"

	"github.com/roach88/floorplan/internal/ir"
)

// Events returns a document's history in order: seq ascending, then request
// id in binary collation. Returns an empty slice, not nil, when the
// document has no events.
func (j *Journal) Events(ctx context.Context, documentID string) ([]ir.HistoryEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT document_id, seq, request_id, op, description, category, state_hash, states
		FROM history_events
		WHERE document_id = ?
		ORDER BY seq ASC, request_id COLLATE BINARY ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query history events: %w", err)
	}
	defer rows.Close()

	events := []ir.HistoryEvent{}
	for rows.Next() {
		var (
			ev ir.HistoryEvent
			op string
		)
		if err := rows.Scan(&ev.DocumentID, &ev.Seq, &ev.RequestID, &op,
			&ev.Description, &ev.Category, &ev.StateHash, &ev.States); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		ev.Op = ir.HistoryOp(op)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history events: %w", err)
	}
	return events, nil
}

// Documents returns the ids of every document with at least one event,
// sorted.
func (j *Journal) Documents(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT document_id FROM history_events
		ORDER BY document_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// LastSeq returns the highest seq recorded for a document, or 0. A Context
// continuing a journaled document starts its clock here.
func (j *Journal) LastSeq(ctx context.Context, documentID string) (int64, error) {
	var seq int64
	err := j.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM history_events WHERE document_id = ?`,
		documentID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
