package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/floorplan/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	DocumentID   string
	Trace        []ir.HistoryEvent
	Hashes       []string
	Rebuilt      []string
}

// toCanonicalMap converts the snapshot for ir.MarshalCanonical. Graph
// hashes become labels s0, s1, ... in order of first appearance, starting
// with the post-setup state.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	labels := make(map[string]string)
	label := func(hash string) string {
		if l, ok := labels[hash]; ok {
			return l
		}
		l := fmt.Sprintf("s%d", len(labels))
		labels[hash] = l
		return l
	}
	if len(s.Hashes) > 0 {
		label(s.Hashes[0])
	}

	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = map[string]any{
			"seq":         ev.Seq,
			"op":          string(ev.Op),
			"request":     ev.RequestID,
			"description": ev.Description,
			"states":      ev.States,
			"state":       label(ev.StateHash),
		}
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"document_id":   s.DocumentID,
		"trace":         trace,
	}
	if len(s.Rebuilt) > 0 {
		out["rebuilt"] = s.Rebuilt
	}
	return out
}

// MarshalGolden renders a result as canonical JSON.
func MarshalGolden(s *Scenario, result *Result) ([]byte, error) {
	docID := s.DocumentID
	if docID == "" {
		docID = s.Name
	}
	snapshot := TraceSnapshot{
		ScenarioName: s.Name,
		DocumentID:   docID,
		Trace:        result.Trace,
		Hashes:       result.Hashes,
		Rebuilt:      result.Rebuilt,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden runs a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := MarshalGolden(scenario, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
