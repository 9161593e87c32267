// Package testutil holds deterministic fixtures shared by tests, the
// scenario harness and the CLI's test command.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates prefix-1, prefix-2, ... as request ids.
//
// Unlike engine.FixedGenerator it never runs out, so a scenario can submit
// any number of requests and still produce byte-identical journals.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "req".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "req"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
