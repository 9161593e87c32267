package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/txn"
)

// RequestState is the lifecycle state of a Transaction.
type RequestState uint8

const (
	Pending RequestState = iota
	Committed
	Undone
)

func (s RequestState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Undone:
		return "undone"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Transaction is the common lifecycle of Request and BatchRequest.
//
// Description and Category are metadata for history views and logs; they
// never affect behavior.
type Transaction interface {
	ID() string
	Description() string
	Category() string
	State() RequestState

	// CanTransactField reports whether field-level snapshots are allowed.
	CanTransactField() bool

	OnCommit(c *Context) error
	OnUndo(c *Context) error
	OnRedo(c *Context) error

	// TxnStates returns the recorded states in commit order.
	TxnStates() []*txn.State

	ensureID(gen IDGenerator)
	commit(c *Context, fieldLevel bool) error
	reset()
	release()
}

// Handler performs a request's mutation. Everything it changes must go
// through tx.
type Handler func(c *Context, tx *txn.Tx) error

// Request is one atomic, user-intended mutation.
type Request struct {
	id          string
	description string
	category    string
	handler     Handler
	deps        []string
	fieldLevel  bool

	state    RequestState
	states   []*txn.State
	released bool
}

// RequestOption configures a Request.
type RequestOption func(*Request)

// WithDependencies names entities whose states are captured alongside the
// mutation, before the handler runs.
func WithDependencies(ids ...string) RequestOption {
	return func(r *Request) { r.deps = append(r.deps, ids...) }
}

// StructuralOnly opts the request out of field-level tracking: every state
// records the entity's whole field set.
func StructuralOnly() RequestOption {
	return func(r *Request) { r.fieldLevel = false }
}

// WithRequestID sets the request id instead of taking one from the
// Context's generator at submit time.
func WithRequestID(id string) RequestOption {
	return func(r *Request) { r.id = id }
}

// NewRequest creates a Pending request.
func NewRequest(description, category string, h Handler, opts ...RequestOption) *Request {
	r := &Request{
		description: description,
		category:    category,
		handler:     h,
		fieldLevel:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Request) ID() string              { return r.id }
func (r *Request) Description() string     { return r.description }
func (r *Request) Category() string        { return r.category }
func (r *Request) State() RequestState     { return r.state }
func (r *Request) CanTransactField() bool  { return r.fieldLevel }
func (r *Request) Dependencies() []string  { return append([]string(nil), r.deps...) }
func (r *Request) TxnStates() []*txn.State { return append([]*txn.State(nil), r.states...) }

// OnCommit runs the handler. On failure the graph is left as it was, no
// state is kept and the request stays Pending.
func (r *Request) OnCommit(c *Context) error {
	return r.commit(c, r.fieldLevel)
}

func (r *Request) commit(c *Context, fieldLevel bool) error {
	if r.state != Pending || r.released {
		return &InvalidStateTransitionError{RequestID: r.id, Op: "commit", From: r.state, Released: r.released}
	}
	r.ensureID(c.ids)

	var states []*txn.State
	err := c.graph.Edit(func(m *graph.Mutator) error {
		tx := txn.Begin(m, fieldLevel)
		if err := r.run(c, tx); err != nil {
			if aerr := tx.Abort(); aerr != nil {
				return errors.Join(err, fmt.Errorf("abort request %s: %w", r.id, aerr))
			}
			return err
		}
		var err error
		states, err = tx.Finish()
		return err
	})
	if err != nil {
		return err
	}
	r.states = states
	r.state = Committed
	return nil
}

func (r *Request) run(c *Context, tx *txn.Tx) error {
	for _, id := range r.deps {
		e, err := tx.Resolve(id)
		if err != nil {
			return fmt.Errorf("dependency: %w", err)
		}
		if err := tx.Track(e.Handle()); err != nil {
			return err
		}
	}
	if r.handler == nil {
		return nil
	}
	return r.handler(c, tx)
}

// OnUndo restores the pre snapshots. Only valid from Committed.
func (r *Request) OnUndo(c *Context) error {
	if r.state != Committed || r.released {
		return &InvalidStateTransitionError{RequestID: r.id, Op: "undo", From: r.state, Released: r.released}
	}
	if err := r.restore(c, txn.Backward); err != nil {
		return err
	}
	r.state = Undone
	return nil
}

// OnRedo restores the post snapshots. Only valid from Undone.
func (r *Request) OnRedo(c *Context) error {
	if r.state != Undone || r.released {
		return &InvalidStateTransitionError{RequestID: r.id, Op: "redo", From: r.state, Released: r.released}
	}
	if err := r.restore(c, txn.Forward); err != nil {
		return err
	}
	r.state = Committed
	return nil
}

func (r *Request) restore(c *Context, d txn.Direction) error {
	return c.graph.Edit(func(m *graph.Mutator) error {
		return txn.Restore(m, r.states, d)
	})
}

func (r *Request) ensureID(gen IDGenerator) {
	if r.id == "" {
		r.id = gen.Generate()
	}
}

// reset drops the recorded states and returns the request to Pending after
// a batch unwound it.
func (r *Request) reset() {
	r.states = nil
	r.state = Pending
}

// release drops the recorded states when the request leaves the history.
// The request can no longer change state.
func (r *Request) release() {
	r.states = nil
	r.released = true
}
