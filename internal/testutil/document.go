package testutil

import (
	"github.com/roach88/floorplan/internal/catalog"
	"github.com/roach88/floorplan/internal/engine"
	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
)

// NewDocument opens an empty document on cat (the built-in catalog when
// nil) with sequential request ids. opts are applied after the defaults.
func NewDocument(cat *ir.Catalog, opts ...engine.Option) (*engine.Context, error) {
	if cat == nil {
		var err error
		if cat, err = catalog.Builtin(); err != nil {
			return nil, err
		}
	}
	reg := graph.NewRegistry()
	cfg := relation.NewConfigRegister()
	if err := catalog.Install(reg, cfg, cat); err != nil {
		return nil, err
	}
	base := []engine.Option{
		engine.WithConfigRegister(cfg),
		engine.WithIDGenerator(NewSequenceGenerator("req")),
	}
	return engine.NewContext(graph.New(reg), append(base, opts...)...), nil
}
