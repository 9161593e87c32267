package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/floorplan/internal/geometry"
	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
)

// Context is the engine state of one open document. It owns the document's
// undo/redo history, exactly one relationship Factory and one
// ConfigRegister, and references the document's graph, which resolves ids
// back to live entities.
//
// A Context is not safe for concurrent use.
type Context struct {
	documentID string
	graph      *graph.Graph
	config     *relation.ConfigRegister
	factory    *relation.Factory
	deriver    geometry.Deriver
	history    *History
	journal    Journal
	metrics    *Metrics
	logger     *slog.Logger
	clock      *Clock
	ids        IDGenerator
	closed     bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithHistoryLimit sets the maximum undo depth; 0 means unlimited.
//
// Default: 100 (DefaultHistoryLimit)
func WithHistoryLimit(n int) Option {
	return func(c *Context) { c.history = newHistory(n) }
}

// WithJournal records every history transition to j.
func WithJournal(j Journal) Option {
	return func(c *Context) { c.journal = j }
}

// WithDeriver sets the commit-time geometry collaborator handlers reach
// through Context.Deriver. The default is geometry.Extents.
func WithDeriver(d geometry.Deriver) Option {
	return func(c *Context) { c.deriver = d }
}

// WithMetrics registers the engine metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Context) { c.metrics = NewMetrics(reg) }
}

// WithIDGenerator sets the request id generator. The default generates
// UUIDv7s.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Context) { c.ids = g }
}

// WithConfigRegister sets the document's relationship configs.
func WithConfigRegister(cfg *relation.ConfigRegister) Option {
	return func(c *Context) { c.config = cfg }
}

// WithDocumentID names the document in journal events.
func WithDocumentID(id string) Option {
	return func(c *Context) { c.documentID = id }
}

// WithClock sets the logical clock that stamps journal events, used to
// continue an existing journal.
func WithClock(clock *Clock) Option {
	return func(c *Context) { c.clock = clock }
}

// NewContext opens a document on g.
func NewContext(g *graph.Graph, opts ...Option) *Context {
	c := &Context{
		documentID: "default",
		graph:      g,
		config:     relation.NewConfigRegister(),
		factory:    relation.NewFactory(),
		deriver:    geometry.Extents{},
		history:    newHistory(DefaultHistoryLimit),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:      NewClock(),
		ids:        UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ relation.Host = (*Context)(nil)

// DocumentID returns the document id.
func (c *Context) DocumentID() string { return c.documentID }

// Graph returns the document's entity graph.
func (c *Context) Graph() *graph.Graph { return c.graph }

// Config returns the document's relationship configs.
func (c *Context) Config() *relation.ConfigRegister { return c.config }

// Factory returns the document's relationship factory.
func (c *Context) Factory() *relation.Factory { return c.factory }

// Deriver returns the commit-time geometry collaborator.
func (c *Context) Deriver() geometry.Deriver { return c.deriver }

// History returns the undo/redo history.
func (c *Context) History() *History { return c.history }

// Logger returns the Context's logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// CanUndo reports whether Undo has a request to undo.
func (c *Context) CanUndo() bool { return !c.closed && c.history.UndoLen() > 0 }

// CanRedo reports whether Redo has a request to redo.
func (c *Context) CanRedo() bool { return !c.closed && c.history.RedoLen() > 0 }

// CreateRelationshipModel builds a relationship model bound to this
// document.
func (c *Context) CreateRelationshipModel(typeName string, opts map[string]any) (relation.Model, error) {
	return c.factory.Create(typeName, c, opts)
}

func (c *Context) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed {
		return &Error{Code: ErrCodeClosed, Message: "document is closed"}
	}
	return nil
}

// Submit commits t and pushes it on the undo stack, clearing the redo
// stack. A commit error is returned unchanged and the history is untouched.
func (c *Context) Submit(ctx context.Context, t Transaction) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	if err := t.OnCommit(c); err != nil {
		c.metrics.failure("commit")
		c.logger.Warn("request failed",
			"request", t.ID(),
			"description", t.Description(),
			"category", t.Category(),
			"error", err,
		)
		return err
	}

	dropped := c.history.push(t)
	states := len(t.TxnStates())
	c.metrics.committed(states)
	c.logger.Debug("request committed",
		"request", t.ID(),
		"description", t.Description(),
		"states", states,
	)
	c.record(ctx, ir.OpCommit, t)
	for _, d := range dropped {
		c.record(ctx, ir.OpEvict, d)
		d.release()
	}
	c.metrics.observe(c.history)
	return nil
}

// Undo undoes the most recent committed request.
func (c *Context) Undo(ctx context.Context) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	t := c.history.peekUndo()
	if t == nil {
		return &Error{Code: ErrCodeNothingToUndo, Message: "undo stack is empty"}
	}
	if err := t.OnUndo(c); err != nil {
		return c.fail(ctx, "undo", t, err)
	}
	c.history.undone()
	c.logger.Debug("request undone", "request", t.ID(), "description", t.Description())
	c.record(ctx, ir.OpUndo, t)
	c.metrics.observe(c.history)
	return nil
}

// Redo redoes the most recently undone request.
func (c *Context) Redo(ctx context.Context) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	t := c.history.peekRedo()
	if t == nil {
		return &Error{Code: ErrCodeNothingToRedo, Message: "redo stack is empty"}
	}
	if err := t.OnRedo(c); err != nil {
		return c.fail(ctx, "redo", t, err)
	}
	c.history.redone()
	c.logger.Debug("request redone", "request", t.ID(), "description", t.Description())
	c.record(ctx, ir.OpRedo, t)
	c.metrics.observe(c.history)
	return nil
}

// fail handles an undo or redo error. A state-transition error is a caller
// bug and leaves the history alone. Anything else means the graph no longer
// matches the recorded states: the history is discarded.
func (c *Context) fail(ctx context.Context, op string, t Transaction, err error) error {
	c.metrics.failure(op)
	if IsInvalidStateTransition(err) {
		return err
	}
	c.logger.Error("restore failed, invalidating history",
		"op", op,
		"request", t.ID(),
		"description", t.Description(),
		"error", err,
	)
	c.record(ctx, ir.OpInvalidate, t)
	for _, d := range c.history.clear() {
		d.release()
	}
	c.metrics.observe(c.history)
	return &Error{
		Code:      ErrCodeHistoryInvalidated,
		Message:   op + " failed; history discarded",
		RequestID: t.ID(),
		Err:       err,
	}
}

// Close discards the history. Every later call fails with ErrCodeClosed.
func (c *Context) Close(_ context.Context) error {
	if c.closed {
		return nil
	}
	for _, t := range c.history.clear() {
		t.release()
	}
	c.closed = true
	c.metrics.observe(c.history)
	c.logger.Debug("document closed", "document", c.documentID)
	return nil
}

func (c *Context) record(ctx context.Context, op ir.HistoryOp, t Transaction) {
	c.metrics.transition(string(op))
	ev := ir.HistoryEvent{
		Seq:         c.clock.Next(),
		DocumentID:  c.documentID,
		RequestID:   t.ID(),
		Op:          op,
		Description: t.Description(),
		Category:    t.Category(),
		StateHash:   c.graph.StateHash(),
		States:      len(t.TxnStates()),
	}
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(ctx, ev); err != nil {
		c.metrics.journalError()
		c.logger.Error("journal append failed", "op", op, "request", t.ID(), "error", err)
	}
}
