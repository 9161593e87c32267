package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/floorplan/internal/command"
)

// BuiltinCatalog names the catalog compiled into the binary.
const BuiltinCatalog = "builtin"

// Scenario is one scripted editing session.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Catalog is "builtin" (the default) or a CUE catalog directory.
	// LoadScenario resolves relative directories against the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// DocumentID names the document in the trace. Defaults to the scenario
	// name.
	DocumentID string `yaml:"document_id,omitempty"`

	// HistoryLimit bounds the undo stack. Zero keeps the engine default.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// Setup ops build the starting graph outside the recorded history.
	Setup []command.Op `yaml:"setup,omitempty"`

	// Steps run in order against the document.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// RequestSpec describes one request.
type RequestSpec struct {
	Description    string       `yaml:"description,omitempty"`
	Category       string       `yaml:"category,omitempty"`
	StructuralOnly bool         `yaml:"structural_only,omitempty"`
	Dependencies   []string     `yaml:"dependencies,omitempty"`
	Ops            []command.Op `yaml:"ops,omitempty"`
}

// Step is one action of a scenario.
type Step struct {
	// Do is request, batch, undo, redo, rebuild or detached.
	Do string `yaml:"do"`

	// RequestSpec describes the request of request and detached steps, and
	// the batch itself for batch steps.
	RequestSpec `yaml:",inline"`

	// Requests are the sub-requests of a batch step.
	Requests []RequestSpec `yaml:"requests,omitempty"`

	// ExpectError, when set, requires the step to fail. It is an error
	// class (see matchError) or else a substring of the error text.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step kinds.
const (
	StepRequest  = "request"
	StepBatch    = "batch"
	StepUndo     = "undo"
	StepRedo     = "redo"
	StepRebuild  = "rebuild"
	StepDetached = "detached"
)

// LoadScenario reads a scenario file. Unknown fields are rejected so typos
// surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario decodes and validates a scenario. A relative catalog
// directory is resolved against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if s.Catalog != "" && s.Catalog != BuiltinCatalog && !filepath.IsAbs(s.Catalog) && baseDir != "" {
		s.Catalog = filepath.Join(baseDir, s.Catalog)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}
	if err := command.Validate(s.Setup); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Do {
	case StepRequest, StepDetached:
		if len(step.Ops) == 0 {
			return fmt.Errorf("%s needs ops", step.Do)
		}
		if len(step.Requests) > 0 {
			return fmt.Errorf("%s does not take requests", step.Do)
		}
		return command.Validate(step.Ops)
	case StepBatch:
		if len(step.Ops) > 0 {
			return fmt.Errorf("batch takes requests, not ops")
		}
		if len(step.Requests) == 0 {
			return fmt.Errorf("batch needs requests")
		}
		for i, r := range step.Requests {
			if len(r.Ops) == 0 {
				return fmt.Errorf("requests[%d] needs ops", i)
			}
			if err := command.Validate(r.Ops); err != nil {
				return fmt.Errorf("requests[%d]: %w", i, err)
			}
		}
		return nil
	case StepUndo, StepRedo, StepRebuild:
		if len(step.Ops) > 0 || len(step.Requests) > 0 {
			return fmt.Errorf("%s takes no ops", step.Do)
		}
		return nil
	case "":
		return fmt.Errorf("do is required")
	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}
}
