package journal

import (
	"context"
	"fmt"

	"github.com/roach88/floorplan/internal/engine"
	"github.com/roach88/floorplan/internal/ir"
)

var _ engine.Journal = (*Journal)(nil)

// Append records one history event. Writing the same (document, seq) twice
// is a no-op, so a retried append never duplicates a row.
func (j *Journal) Append(ctx context.Context, ev ir.HistoryEvent) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO history_events
		(document_id, seq, request_id, op, description, category, state_hash, states)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, seq) DO NOTHING
	`,
		ev.DocumentID,
		ev.Seq,
		ev.RequestID,
		string(ev.Op),
		ev.Description,
		ev.Category,
		ev.StateHash,
		ev.States,
	)
	if err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	return nil
}
