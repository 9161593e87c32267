package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/txn"
)

// BatchRequest composes several transactions into one atomic unit.
type BatchRequest struct {
	id          string
	description string
	category    string
	subs        []Transaction
	state       RequestState
	released    bool
}

// NewBatch creates a Pending batch. Nested batches are flattened in order.
func NewBatch(description, category string, subs ...Transaction) *BatchRequest {
	b := &BatchRequest{description: description, category: category}
	for _, t := range subs {
		b.Append(t)
	}
	return b
}

// Append adds t after the existing sub-requests. Appending a batch appends
// its sub-requests, preserving their order.
func (b *BatchRequest) Append(t Transaction) {
	if nested, ok := t.(*BatchRequest); ok {
		for _, sub := range nested.subs {
			b.Append(sub)
		}
		return
	}
	b.subs = append(b.subs, t)
}

// Requests returns the sub-requests in commit order.
func (b *BatchRequest) Requests() []Transaction {
	return append([]Transaction(nil), b.subs...)
}

func (b *BatchRequest) ID() string          { return b.id }
func (b *BatchRequest) Description() string { return b.description }
func (b *BatchRequest) Category() string    { return b.category }
func (b *BatchRequest) State() RequestState { return b.state }

// CanTransactField is true iff every sub-request allows field tracking.
func (b *BatchRequest) CanTransactField() bool {
	for _, t := range b.subs {
		if !t.CanTransactField() {
			return false
		}
	}
	return true
}

// TxnStates returns every sub-request's states in commit order.
func (b *BatchRequest) TxnStates() []*txn.State {
	var out []*txn.State
	for _, t := range b.subs {
		out = append(out, t.TxnStates()...)
	}
	return out
}

// OnCommit commits the sub-requests in order. If one fails, those already
// committed are undone in reverse and the sub-request's error is returned
// unchanged; the batch stays Pending.
func (b *BatchRequest) OnCommit(c *Context) error {
	return b.commit(c, true)
}

func (b *BatchRequest) commit(c *Context, fieldLevel bool) error {
	if b.state != Pending || b.released {
		return &InvalidStateTransitionError{RequestID: b.id, Op: "commit", From: b.state, Released: b.released}
	}
	b.ensureID(c.ids)
	fieldLevel = fieldLevel && b.CanTransactField()
	wasDirty := c.graph.Dirty()

	for i, t := range b.subs {
		err := t.commit(c, fieldLevel)
		if err == nil {
			continue
		}
		c.logger.Warn("batch sub-request failed, unwinding",
			"batch", b.id,
			"index", i,
			"request", t.Description(),
			"error", err,
		)
		for j := i - 1; j >= 0; j-- {
			if uerr := b.subs[j].OnUndo(c); uerr != nil {
				return errors.Join(err, fmt.Errorf("unwind batch %s at %d: %w", b.id, j, uerr))
			}
		}
		for _, sub := range b.subs[:i] {
			sub.reset()
		}
		c.restoreDirty(wasDirty)
		return err
	}
	b.state = Committed
	return nil
}

// restoreDirty clears every dirty flag not in keep. An unwound batch leaves
// the document as it found it, dirty flags included.
func (c *Context) restoreDirty(keep []graph.Handle) {
	for _, h := range c.graph.Dirty() {
		if !slices.Contains(keep, h) {
			c.graph.ClearDirty(h)
		}
	}
}

// OnUndo undoes the sub-requests in reverse order.
func (b *BatchRequest) OnUndo(c *Context) error {
	if b.state != Committed || b.released {
		return &InvalidStateTransitionError{RequestID: b.id, Op: "undo", From: b.state, Released: b.released}
	}
	for i := len(b.subs) - 1; i >= 0; i-- {
		if err := b.subs[i].OnUndo(c); err != nil {
			return err
		}
	}
	b.state = Undone
	return nil
}

// OnRedo redoes the sub-requests in order.
func (b *BatchRequest) OnRedo(c *Context) error {
	if b.state != Undone || b.released {
		return &InvalidStateTransitionError{RequestID: b.id, Op: "redo", From: b.state, Released: b.released}
	}
	for _, t := range b.subs {
		if err := t.OnRedo(c); err != nil {
			return err
		}
	}
	b.state = Committed
	return nil
}

func (b *BatchRequest) ensureID(gen IDGenerator) {
	if b.id == "" {
		b.id = gen.Generate()
	}
}

func (b *BatchRequest) reset() {
	for _, t := range b.subs {
		t.reset()
	}
	b.state = Pending
}

func (b *BatchRequest) release() {
	for _, t := range b.subs {
		t.release()
	}
	b.released = true
}
