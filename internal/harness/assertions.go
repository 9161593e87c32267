package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/floorplan/internal/constraint"
	"github.com/roach88/floorplan/internal/engine"
	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// Assertion checks the final document.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ID names the entity (field, absent, exists, children) or the root of a
	// constraint walk (constraint_order, violations; empty walks every root).
	ID string `yaml:"id,omitempty"`

	// Field and Value are the expected field (field, absent).
	Field string `yaml:"field,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Children is the expected ordered child list (children).
	Children []string `yaml:"children,omitempty"`

	// IDs are entity ids (dirty, clean).
	IDs []string `yaml:"ids,omitempty"`

	// Keys are constraint keys "owner:name" (constraint_order, violations).
	Keys []string `yaml:"keys,omitempty"`

	// Undo and Redo are stack depths (history).
	Undo *int `yaml:"undo,omitempty"`
	Redo *int `yaml:"redo,omitempty"`

	// Step is the checkpoint to compare against (state_hash_matches).
	Step *int `yaml:"step,omitempty"`

	// Ops is the expected journal op sequence (trace_ops).
	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertField            = "field"
	AssertAbsent           = "absent"
	AssertExists           = "exists"
	AssertChildren         = "children"
	AssertDirty            = "dirty"
	AssertClean            = "clean"
	AssertConstraintOrder  = "constraint_order"
	AssertViolations       = "violations"
	AssertHistory          = "history"
	AssertStateHashMatches = "state_hash_matches"
	AssertTraceOps         = "trace_ops"
)

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertField:
		if a.ID == "" || a.Field == "" {
			return fmt.Errorf("field needs id and field")
		}
	case AssertAbsent, AssertExists:
		if a.ID == "" {
			return fmt.Errorf("%s needs id", a.Type)
		}
	case AssertDirty, AssertClean, AssertChildren, AssertConstraintOrder, AssertViolations, AssertTraceOps:
	case AssertHistory:
		if a.Undo == nil && a.Redo == nil {
			return fmt.Errorf("history needs undo or redo")
		}
	case AssertStateHashMatches:
		if a.Step == nil || *a.Step < 0 {
			return fmt.Errorf("state_hash_matches needs a step >= 0")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// AssertionContext is the document state assertions read.
type AssertionContext struct {
	Document *engine.Context
	Hashes   []string
	Trace    []ir.HistoryEvent
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	g := actx.Document.Graph()
	switch a.Type {
	case AssertField:
		return assertField(g, a)
	case AssertAbsent:
		return assertAbsent(g, a)
	case AssertExists:
		if _, ok := g.Resolve(a.ID); !ok {
			return &AssertionError{Type: a.Type, Expected: a.ID + " exists", Actual: "no such entity"}
		}
		return nil
	case AssertChildren:
		return assertChildren(g, a)
	case AssertDirty:
		return assertDirty(g, a)
	case AssertClean:
		return assertClean(g, a)
	case AssertConstraintOrder:
		return assertConstraintOrder(g, a)
	case AssertViolations:
		return assertViolations(g, a)
	case AssertHistory:
		return assertHistory(actx.Document.History(), a)
	case AssertStateHashMatches:
		return assertStateHash(g, actx.Hashes, a)
	case AssertTraceOps:
		return assertTraceOps(actx.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertField(g *graph.Graph, a Assertion) error {
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("field %s.%s: expected value: %w", a.ID, a.Field, err)
	}
	e, ok := g.Resolve(a.ID)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s.%s = %s", a.ID, a.Field, format(want)), Actual: "no such entity"}
	}
	got, ok := e.Field(a.Field)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s.%s = %s", a.ID, a.Field, format(want)), Actual: "field not set"}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", a.ID, a.Field, format(want)),
			Actual:   format(got),
		}
	}
	return nil
}

func assertAbsent(g *graph.Graph, a Assertion) error {
	e, ok := g.Resolve(a.ID)
	if a.Field == "" {
		if ok {
			return &AssertionError{Type: a.Type, Expected: a.ID + " absent", Actual: "entity exists"}
		}
		return nil
	}
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s exists without %s", a.ID, a.Field), Actual: "no such entity"}
	}
	if v, set := e.Field(a.Field); set {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s.%s unset", a.ID, a.Field), Actual: format(v)}
	}
	return nil
}

func assertChildren(g *graph.Graph, a Assertion) error {
	var handles []graph.Handle
	if a.ID == "" {
		handles = g.Roots()
	} else {
		e, ok := g.Resolve(a.ID)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: a.ID + " exists", Actual: "no such entity"}
		}
		handles = e.Children()
	}
	got := ids(g, handles)
	if !slices.Equal(got, a.Children) {
		return &AssertionError{Type: a.Type, Expected: list(a.Children), Actual: list(got)}
	}
	return nil
}

func assertDirty(g *graph.Graph, a Assertion) error {
	got := ids(g, g.Dirty())
	want := slices.Clone(a.IDs)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		return &AssertionError{Type: a.Type, Expected: list(want), Actual: list(got)}
	}
	return nil
}

func assertClean(g *graph.Graph, a Assertion) error {
	dirty := ids(g, g.Dirty())
	if len(a.IDs) == 0 {
		if len(dirty) > 0 {
			return &AssertionError{Type: a.Type, Expected: "no dirty entities", Actual: list(dirty)}
		}
		return nil
	}
	var bad []string
	for _, id := range a.IDs {
		if slices.Contains(dirty, id) {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return &AssertionError{Type: a.Type, Expected: list(a.IDs) + " clean", Actual: list(bad) + " dirty"}
	}
	return nil
}

func root(g *graph.Graph, id string) (graph.Handle, error) {
	if id == "" {
		return graph.NoHandle, nil
	}
	e, ok := g.Resolve(id)
	if !ok {
		return graph.NoHandle, fmt.Errorf("root %q: %w", id, graph.ErrNoEntity)
	}
	return e.Handle(), nil
}

func assertConstraintOrder(g *graph.Graph, a Assertion) error {
	h, err := root(g, a.ID)
	if err != nil {
		return err
	}
	cs, err := constraint.CollectAll(g, h)
	if err != nil {
		return err
	}
	got := make([]string, len(cs))
	for i, c := range cs {
		got[i] = c.Key()
	}
	if !slices.Equal(got, a.Keys) {
		return &AssertionError{Type: a.Type, Expected: list(a.Keys), Actual: list(got)}
	}
	return nil
}

func assertViolations(g *graph.Graph, a Assertion) error {
	h, err := root(g, a.ID)
	if err != nil {
		return err
	}
	cs, err := constraint.CollectAll(g, h)
	if err != nil {
		return err
	}
	var got []string
	for _, v := range constraint.NewChecker(g).Check(cs) {
		got = append(got, v.Key)
	}
	if !slices.Equal(got, a.Keys) {
		return &AssertionError{Type: a.Type, Expected: list(a.Keys), Actual: list(got)}
	}
	return nil
}

func assertHistory(h *engine.History, a Assertion) error {
	if a.Undo != nil && h.UndoLen() != *a.Undo {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("undo depth %d", *a.Undo), Actual: fmt.Sprintf("%d", h.UndoLen())}
	}
	if a.Redo != nil && h.RedoLen() != *a.Redo {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("redo depth %d", *a.Redo), Actual: fmt.Sprintf("%d", h.RedoLen())}
	}
	return nil
}

func assertStateHash(g *graph.Graph, hashes []string, a Assertion) error {
	step := *a.Step
	if step >= len(hashes) {
		return fmt.Errorf("state_hash_matches: no checkpoint after step %d", step)
	}
	if got := g.StateHash(); got != hashes[step] {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("state after step %d (%s)", step, hashes[step]),
			Actual:   got,
		}
	}
	return nil
}

func assertTraceOps(trace []ir.HistoryEvent, a Assertion) error {
	got := make([]string, len(trace))
	for i, ev := range trace {
		got[i] = string(ev.Op)
	}
	if !slices.Equal(got, a.Ops) {
		return &AssertionError{Type: a.Type, Expected: list(a.Ops), Actual: list(got)}
	}
	return nil
}

func ids(g *graph.Graph, hs []graph.Handle) []string {
	out := []string{}
	for _, h := range hs {
		if e, ok := g.Lookup(h); ok {
			out = append(out, e.ID())
		}
	}
	return out
}

func list(s []string) string {
	return "[" + strings.Join(s, ", ") + "]"
}

func format(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
