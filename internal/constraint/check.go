package constraint

import (
	"fmt"
	"strings"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// Solver consumes an ordered constraint list. Solvers live outside this
// repository; Checker is the reference implementation used by tests and the
// scenario harness.
type Solver interface {
	Solve(constraints []graph.Constraint) error
}

// Violation is one constraint that does not hold.
type Violation struct {
	Key     string `json:"key"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// UnsatisfiedError is returned by Checker.Solve when any constraint fails.
type UnsatisfiedError struct {
	Violations []Violation
}

func (e *UnsatisfiedError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Key + ": " + v.Message
	}
	return fmt.Sprintf("%d constraint(s) violated: %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Checker evaluates the built-in rules against the current graph. It does
// not move anything.
type Checker struct {
	g *graph.Graph
}

// NewChecker returns a checker that resolves relationship endpoints in g.
func NewChecker(g *graph.Graph) *Checker {
	return &Checker{g: g}
}

var _ Solver = (*Checker)(nil)

// Solve returns an *UnsatisfiedError listing every violation, or nil.
func (c *Checker) Solve(constraints []graph.Constraint) error {
	if v := c.Check(constraints); len(v) > 0 {
		return &UnsatisfiedError{Violations: v}
	}
	return nil
}

// Check returns the violations in constraint order.
func (c *Checker) Check(constraints []graph.Constraint) []Violation {
	var out []Violation
	for _, con := range constraints {
		if msg := c.check(con); msg != "" {
			out = append(out, Violation{Key: con.Key(), Rule: con.Rule, Message: msg})
		}
	}
	return out
}

func (c *Checker) check(con graph.Constraint) string {
	switch con.Rule {
	case ir.RuleMin, ir.RuleMax, ir.RulePositive:
		v, ok := con.Params[con.Field].(ir.Int)
		if !ok {
			return fmt.Sprintf("field %q is not an integer", con.Field)
		}
		switch {
		case con.Rule == ir.RuleMin && int64(v) < con.Bound:
			return fmt.Sprintf("%s=%d below minimum %d", con.Field, v, con.Bound)
		case con.Rule == ir.RuleMax && int64(v) > con.Bound:
			return fmt.Sprintf("%s=%d above maximum %d", con.Field, v, con.Bound)
		case con.Rule == ir.RulePositive && v <= 0:
			return fmt.Sprintf("%s=%d is not positive", con.Field, v)
		}
		return ""
	case ir.RuleCoincident:
		return c.coincident(con.Params)
	case ir.RuleAligned:
		return c.aligned(con.Params)
	default:
		return fmt.Sprintf("unknown rule %q", con.Rule)
	}
}

// coincident holds when the end of wall "a" lies within "gap" of the start of
// wall "b" on both axes.
func (c *Checker) coincident(p ir.Object) string {
	a, msg := c.endpoint(p, "a")
	if msg != "" {
		return msg
	}
	b, msg := c.endpoint(p, "b")
	if msg != "" {
		return msg
	}
	gap, _ := p["gap"].(ir.Int)
	x2, _ := a.Int("x2")
	y2, _ := a.Int("y2")
	x1, _ := b.Int("x1")
	y1, _ := b.Int("y1")
	if d := max(abs(x2-x1), abs(y2-y1)); d > int64(gap) {
		return fmt.Sprintf("%s and %s are %d apart, gap is %d", a.ID(), b.ID(), d, gap)
	}
	return ""
}

// aligned holds when every target after the first sits at the first
// target's coordinate plus "offset" on "axis".
func (c *Checker) aligned(p ir.Object) string {
	axis, _ := p["axis"].(ir.String)
	offset, _ := p["offset"].(ir.Int)
	targets, _ := p["targets"].(ir.List)
	if len(targets) < 2 {
		return "alignment needs at least two targets"
	}
	var base int64
	for i, t := range targets {
		id, _ := t.(ir.String)
		e, ok := c.g.Resolve(string(id))
		if !ok {
			return fmt.Sprintf("target %q does not exist", id)
		}
		v, ok := e.Int(string(axis))
		if !ok {
			return fmt.Sprintf("target %q has no %q coordinate", id, axis)
		}
		if i == 0 {
			base = v
			continue
		}
		if v != base+int64(offset) {
			return fmt.Sprintf("target %q at %s=%d, want %d", id, axis, v, base+int64(offset))
		}
	}
	return ""
}

func (c *Checker) endpoint(p ir.Object, key string) (*graph.Entity, string) {
	id, ok := p[key].(ir.String)
	if !ok {
		return nil, fmt.Sprintf("missing endpoint %q", key)
	}
	e, ok := c.g.Resolve(string(id))
	if !ok {
		return nil, fmt.Sprintf("endpoint %q does not exist", id)
	}
	return e, ""
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
