package harness

import "github.com/roach88/floorplan/internal/ir"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Trace is every history event journaled, in order.
	Trace []ir.HistoryEvent `json:"trace"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Hashes holds the graph hash after setup (index 0) and after each step.
	Hashes []string `json:"hashes"`

	// Rebuilt lists entity ids cleared by rebuild steps, in order.
	Rebuilt []string `json:"rebuilt,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.HistoryEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
