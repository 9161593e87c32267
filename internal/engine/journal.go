package engine

import (
	"context"
	"sync"

	"github.com/roach88/floorplan/internal/ir"
)

// Journal receives one event per history transition. internal/journal
// implements it on SQLite.
//
// Journal failures never fail the transition they describe: the Context
// logs them and counts them in its metrics.
type Journal interface {
	Append(ctx context.Context, ev ir.HistoryEvent) error
}

// MemoryJournal keeps events in memory, for tests and scenario traces.
type MemoryJournal struct {
	mu     sync.Mutex
	events []ir.HistoryEvent
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append records ev.
func (j *MemoryJournal) Append(_ context.Context, ev ir.HistoryEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (j *MemoryJournal) Events() []ir.HistoryEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.HistoryEvent(nil), j.events...)
}
