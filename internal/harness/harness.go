package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/floorplan/internal/catalog"
	"github.com/roach88/floorplan/internal/command"
	"github.com/roach88/floorplan/internal/engine"
	"github.com/roach88/floorplan/internal/geometry"
	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
	"github.com/roach88/floorplan/internal/testutil"
	"github.com/roach88/floorplan/internal/txn"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	journal    engine.Journal
	engineOpts []engine.Option
}

// WithLogger sets the logger for the document and rebuild passes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithJournal also journals every history event to j, alongside the
// in-memory trace.
func WithJournal(j engine.Journal) Option {
	return func(c *config) { c.journal = j }
}

// WithEngineOptions passes extra options to the document's Context.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, opts...) }
}

// Harness runs one scenario against one document.
type Harness struct {
	ctx     context.Context
	doc     *engine.Context
	cfg     *relation.ConfigRegister
	pass    *geometry.Pass
	logger  *slog.Logger
	detachN int
}

// Run executes a scenario on a fresh document and evaluates its
// assertions. The returned error covers problems running the scenario at
// all (catalog, setup); step and assertion failures land in Result.Errors.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	cat, err := loadCatalog(s.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	reg := graph.NewRegistry()
	relCfg := relation.NewConfigRegister()
	if err := catalog.Install(reg, relCfg, cat); err != nil {
		return nil, fmt.Errorf("failed to install catalog: %w", err)
	}
	g := graph.New(reg)

	h := &Harness{
		ctx:    context.Background(),
		cfg:    relCfg,
		pass:   geometry.NewPass(geometry.NewOutline(), geometry.WithLogger(cfg.logger)),
		logger: cfg.logger,
	}

	if len(s.Setup) > 0 {
		if err := h.detached(g, RequestSpec{Description: "setup", Ops: s.Setup}); err != nil {
			return nil, fmt.Errorf("failed to execute setup: %w", err)
		}
	}

	docID := s.DocumentID
	if docID == "" {
		docID = s.Name
	}
	trace := engine.NewMemoryJournal()
	var journal engine.Journal = trace
	if cfg.journal != nil {
		journal = teeJournal{trace, cfg.journal}
	}
	engineOpts := []engine.Option{
		engine.WithDocumentID(docID),
		engine.WithConfigRegister(relCfg),
		engine.WithJournal(journal),
		engine.WithLogger(cfg.logger),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("req")),
	}
	if s.HistoryLimit > 0 {
		engineOpts = append(engineOpts, engine.WithHistoryLimit(s.HistoryLimit))
	}
	h.doc = engine.NewContext(g, append(engineOpts, cfg.engineOpts...)...)
	defer h.doc.Close(h.ctx)

	result := NewResult()
	result.Hashes = append(result.Hashes, g.StateHash())

	for i, step := range s.Steps {
		err := h.step(step, result)
		switch {
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected error %q, got success", i, step.Do, step.ExpectError))
		case step.ExpectError != "" && !matchError(err, step.ExpectError):
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected error %q, got: %v", i, step.Do, step.ExpectError, err))
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] (%s): %v", i, step.Do, err))
		}
		result.Hashes = append(result.Hashes, g.StateHash())
	}

	result.Trace = trace.Events()
	actx := &AssertionContext{Document: h.doc, Hashes: result.Hashes, Trace: result.Trace}
	for _, msg := range EvaluateAssertions(s.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func loadCatalog(name string) (*ir.Catalog, error) {
	if name == "" || name == BuiltinCatalog {
		return catalog.Builtin()
	}
	return catalog.LoadDir(name)
}

func (h *Harness) step(step Step, result *Result) error {
	switch step.Do {
	case StepRequest:
		return h.doc.Submit(h.ctx, h.request(step.RequestSpec))
	case StepBatch:
		subs := make([]engine.Transaction, len(step.Requests))
		for i, r := range step.Requests {
			subs[i] = h.request(r)
		}
		return h.doc.Submit(h.ctx, engine.NewBatch(step.Description, category(step.Category), subs...))
	case StepUndo:
		return h.doc.Undo(h.ctx)
	case StepRedo:
		return h.doc.Redo(h.ctx)
	case StepRebuild:
		rebuilt, err := h.pass.Run(h.doc.Graph())
		result.Rebuilt = append(result.Rebuilt, rebuilt...)
		return err
	case StepDetached:
		return h.detached(h.doc.Graph(), step.RequestSpec)
	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}
}

func (h *Harness) request(r RequestSpec) *engine.Request {
	var opts []engine.RequestOption
	if len(r.Dependencies) > 0 {
		opts = append(opts, engine.WithDependencies(r.Dependencies...))
	}
	if r.StructuralOnly {
		opts = append(opts, engine.StructuralOnly())
	}
	return engine.NewRequest(r.Description, category(r.Category), command.Handler(r.Ops), opts...)
}

// detached commits r through a throwaway Context on g, so the change is
// not in the document's history.
func (h *Harness) detached(g *graph.Graph, r RequestSpec) error {
	h.detachN++
	side := engine.NewContext(g,
		engine.WithConfigRegister(h.cfg),
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(testutil.NewSequenceGenerator(fmt.Sprintf("detached%d", h.detachN))),
	)
	defer side.Close(h.ctx)
	return side.Submit(h.ctx, h.request(r))
}

func category(c string) string {
	if c == "" {
		return "edit"
	}
	return c
}

// matchError reports whether err belongs to the named class. Unknown names
// match as a substring of the error text.
func matchError(err error, want string) bool {
	if err == nil {
		return false
	}
	switch want {
	case "nothing_to_undo":
		return engine.IsNothingToUndo(err)
	case "nothing_to_redo":
		return engine.IsNothingToRedo(err)
	case "history_invalidated":
		return engine.IsHistoryInvalidated(err)
	case "invalid_state":
		return engine.IsInvalidStateTransition(err)
	case "stale_reference":
		return txn.IsStaleReference(err)
	case "unknown_type":
		return graph.IsUnknownType(err)
	case "no_entity":
		return errors.Is(err, graph.ErrNoEntity)
	case "cycle":
		return errors.Is(err, graph.ErrCycle)
	case "failed":
		return errors.Is(err, command.ErrFailed)
	case "invalid_options":
		var oe *relation.OptionsError
		return errors.As(err, &oe)
	case "unsupported_kind":
		var uk *geometry.UnsupportedKindError
		return errors.As(err, &uk)
	default:
		return strings.Contains(err.Error(), want)
	}
}

// teeJournal appends to every journal in order and returns the first error.
type teeJournal []engine.Journal

func (t teeJournal) Append(ctx context.Context, ev ir.HistoryEvent) error {
	var first error
	for _, j := range t {
		if err := j.Append(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
