package relation

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
)

// Host is what a model is created against: the document's graph and its
// relationship configs. engine.Context implements it.
type Host interface {
	Graph() *graph.Graph
	Config() *ConfigRegister
}

// Model is a typed relationship between entities.
type Model interface {
	// Type is the relationship type name, which is also the entity type
	// the model is stored as.
	Type() string

	// Endpoints lists the ids of the related entities.
	Endpoints() []string

	// Fields are stored on the relationship entity.
	Fields() ir.Object

	// Validate checks the endpoints against the graph.
	Validate(g *graph.Graph) error
}

// Decoder fills an options struct from merged options and validates it.
type Decoder func(out any) error

// Constructor builds a model of a relationship type.
type Constructor func(typeName string, decode Decoder) (Model, error)

// UnknownModelError is returned when a relationship type has no config, or
// its config names a model with no constructor.
type UnknownModelError struct {
	Type string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown relationship model %q", e.Type)
}

// IsUnknownModel reports whether err is or wraps an UnknownModelError.
func IsUnknownModel(err error) bool {
	var ue *UnknownModelError
	return errors.As(err, &ue)
}

// OptionsError reports options that failed decoding or validation.
type OptionsError struct {
	Type   string
	Fields []string // failing option fields, sorted
	Err    error
}

func (e *OptionsError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("relationship %q: invalid options %v: %v", e.Type, e.Fields, e.Err)
	}
	return fmt.Sprintf("relationship %q: invalid options: %v", e.Type, e.Err)
}

func (e *OptionsError) Unwrap() error { return e.Err }

// Factory instantiates relationship models for one document.
type Factory struct {
	ctors    map[string]Constructor
	validate *validator.Validate
}

// Built-in model names.
const (
	ModelJoint     = "joint"
	ModelAlignment = "alignment"
)

// NewFactory creates a factory with the built-in models registered.
func NewFactory() *Factory {
	f := &Factory{
		ctors:    make(map[string]Constructor),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	f.ctors[ModelJoint] = newJoint
	f.ctors[ModelAlignment] = newAlignment
	return f
}

// Register adds a model constructor.
func (f *Factory) Register(model string, ctor Constructor) error {
	if _, exists := f.ctors[model]; exists {
		return fmt.Errorf("relationship model %q already registered", model)
	}
	f.ctors[model] = ctor
	return nil
}

// Models returns the registered model names, sorted.
func (f *Factory) Models() []string {
	names := make([]string, 0, len(f.ctors))
	for name := range f.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a model of the given relationship type. opts override the
// type's configured defaults key by key.
func (f *Factory) Create(typeName string, host Host, opts map[string]any) (Model, error) {
	spec, ok := host.Config().Lookup(typeName)
	if !ok {
		return nil, &UnknownModelError{Type: typeName}
	}
	ctor, ok := f.ctors[spec.Model]
	if !ok {
		return nil, &UnknownModelError{Type: spec.Model}
	}

	merged := make(map[string]any, len(spec.Defaults)+len(opts))
	for k, v := range spec.Defaults {
		merged[k] = ir.ToAny(v)
	}
	for k, v := range opts {
		merged[k] = v
	}

	m, err := ctor(typeName, f.decoder(typeName, merged))
	if err != nil {
		return nil, err
	}
	if err := m.Validate(host.Graph()); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *Factory) decoder(typeName string, in map[string]any) Decoder {
	return func(out any) error {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      out,
			ErrorUnused: true,
		})
		if err != nil {
			return err
		}
		if err := dec.Decode(in); err != nil {
			return &OptionsError{Type: typeName, Err: err}
		}
		if err := f.validate.Struct(out); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				fields := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					fields = append(fields, fe.Field())
				}
				slices.Sort(fields)
				return &OptionsError{Type: typeName, Fields: fields, Err: err}
			}
			return &OptionsError{Type: typeName, Err: err}
		}
		return nil
	}
}
