// Package command turns declarative edit operations into request handlers.
//
// Scenarios, the CLI and tests describe edits as data ([]Op); Handler
// replays them through the request's transaction so they are captured for
// undo exactly like hand-written handlers.
package command

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/engine"
	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
	"github.com/roach88/floorplan/internal/txn"
)

// Operation names.
const (
	OpCreate  = "create"
	OpSet     = "set"
	OpUnset   = "unset"
	OpMove    = "move"
	OpDestroy = "destroy"
	OpDerive  = "derive"
	OpRelate  = "relate"
	OpFail    = "fail"
)

// ErrFailed is returned by the fail operation.
var ErrFailed = errors.New("requested failure")

// Op is one declarative edit.
//
// Parent is an entity id; empty means a root. Index positions a moved
// entity among its new siblings; nil appends.
type Op struct {
	Op      string         `yaml:"op" json:"op"`
	Type    string         `yaml:"type,omitempty" json:"type,omitempty"`
	ID      string         `yaml:"id,omitempty" json:"id,omitempty"`
	Parent  string         `yaml:"parent,omitempty" json:"parent,omitempty"`
	Index   *int           `yaml:"index,omitempty" json:"index,omitempty"`
	Field   string         `yaml:"field,omitempty" json:"field,omitempty"`
	Value   any            `yaml:"value,omitempty" json:"value,omitempty"`
	Fields  map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
	Model   string         `yaml:"model,omitempty" json:"model,omitempty"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// OpError reports which operation of a list failed.
type OpError struct {
	Index int
	Op    string
	ID    string
	Err   error
}

func (e *OpError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("op %d (%s %s): %v", e.Index, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Validate checks that every op names a known operation and carries the
// arguments it needs. It does not look at any graph.
func Validate(ops []Op) error {
	for i, op := range ops {
		if err := op.validate(); err != nil {
			return &OpError{Index: i, Op: op.Op, ID: op.ID, Err: err}
		}
	}
	return nil
}

func (op Op) validate() error {
	need := func(name, v string) error {
		if v == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
	switch op.Op {
	case OpCreate:
		return errors.Join(need("type", op.Type), need("id", op.ID))
	case OpSet:
		if err := need("id", op.ID); err != nil {
			return err
		}
		if op.Field == "" && len(op.Fields) == 0 {
			return errors.New("field or fields is required")
		}
		return nil
	case OpUnset:
		return errors.Join(need("id", op.ID), need("field", op.Field))
	case OpMove, OpDestroy, OpDerive:
		return need("id", op.ID)
	case OpRelate:
		return errors.Join(need("model", op.Model), need("id", op.ID))
	case OpFail:
		return nil
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// Handler returns an engine handler that applies ops in order. The first
// failing op stops the handler; the engine then aborts the transaction.
func Handler(ops []Op) engine.Handler {
	ops = slices.Clone(ops)
	return func(c *engine.Context, tx *txn.Tx) error {
		for i, op := range ops {
			if err := apply(c, tx, op); err != nil {
				return &OpError{Index: i, Op: op.Op, ID: op.ID, Err: err}
			}
		}
		return nil
	}
}

func apply(c *engine.Context, tx *txn.Tx, op Op) error {
	if err := op.validate(); err != nil {
		return err
	}
	switch op.Op {
	case OpCreate:
		parent, err := parentHandle(tx, op.Parent)
		if err != nil {
			return err
		}
		e, err := tx.Create(op.Type, op.ID, parent)
		if err != nil {
			return err
		}
		return setFields(tx, e.Handle(), op)

	case OpSet:
		e, err := tx.Resolve(op.ID)
		if err != nil {
			return err
		}
		return setFields(tx, e.Handle(), op)

	case OpUnset:
		e, err := tx.Resolve(op.ID)
		if err != nil {
			return err
		}
		return tx.Unset(e.Handle(), op.Field)

	case OpMove:
		e, err := tx.Resolve(op.ID)
		if err != nil {
			return err
		}
		parent, err := parentHandle(tx, op.Parent)
		if err != nil {
			return err
		}
		index := -1
		if op.Index != nil {
			index = *op.Index
		}
		return tx.Move(e.Handle(), parent, index)

	case OpDestroy:
		e, err := tx.Resolve(op.ID)
		if err != nil {
			return err
		}
		return tx.Destroy(e.Handle())

	case OpDerive:
		e, err := tx.Resolve(op.ID)
		if err != nil {
			return err
		}
		return c.Deriver().Reset(tx, e.Handle())

	case OpRelate:
		parent, err := parentHandle(tx, op.Parent)
		if err != nil {
			return err
		}
		m, err := c.CreateRelationshipModel(op.Model, op.Options)
		if err != nil {
			return err
		}
		_, err = relation.Insert(tx, m, op.ID, parent)
		return err

	case OpFail:
		if op.ID != "" {
			return fmt.Errorf("%w: %s", ErrFailed, op.ID)
		}
		return ErrFailed
	}
	return fmt.Errorf("unknown op %q", op.Op)
}

func parentHandle(tx *txn.Tx, id string) (graph.Handle, error) {
	if id == "" {
		return graph.NoHandle, nil
	}
	p, err := tx.Resolve(id)
	if err != nil {
		return graph.NoHandle, fmt.Errorf("parent: %w", err)
	}
	return p.Handle(), nil
}

// setFields writes op.Field/op.Value and then op.Fields in key order.
func setFields(tx *txn.Tx, h graph.Handle, op Op) error {
	if op.Field != "" {
		v, err := ir.FromAny(op.Value)
		if err != nil {
			return fmt.Errorf("field %q: %w", op.Field, err)
		}
		if err := tx.Set(h, op.Field, v); err != nil {
			return err
		}
	}
	if len(op.Fields) == 0 {
		return nil
	}
	fields, err := ir.ObjectFromMap(op.Fields)
	if err != nil {
		return err
	}
	for _, name := range fields.Keys() {
		if err := tx.Set(h, name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}
