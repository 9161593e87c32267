package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNotEditing is returned by a Mutator used outside Graph.Edit.
	ErrNotEditing = errors.New("graph: mutation outside an edit")

	// ErrNoEntity is returned when a handle or id does not name a live entity.
	ErrNoEntity = errors.New("graph: no such entity")

	// ErrCycle is returned when a move would make an entity its own ancestor.
	// A cycle reached any other way is a fatal internal error.
	ErrCycle = errors.New("graph: cycle in entity tree")

	// ErrEmptyID is returned when an entity is created without an id.
	ErrEmptyID = errors.New("graph: empty entity id")
)

// UnknownTypeError is returned when a type name was never registered.
// It is not fatal: the caller should reject the operation.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown entity type %q", e.Type)
}

// IsUnknownType reports whether err is or wraps an UnknownTypeError.
func IsUnknownType(err error) bool {
	var ute *UnknownTypeError
	return errors.As(err, &ute)
}

// DuplicateIDError is returned when an id is already held by a live entity.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("entity id %q already in use", e.ID)
}

// DuplicateClassError is returned when a type name is registered twice.
type DuplicateClassError struct {
	Name string
}

func (e *DuplicateClassError) Error() string {
	return fmt.Sprintf("class %q already registered", e.Name)
}

// LinkError reports a parent/child inconsistency found by Verify.
type LinkError struct {
	Handle  Handle
	ID      string
	Message string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link inconsistency at %s (handle %d): %s", e.ID, e.Handle, e.Message)
}

// entityError wraps ErrNoEntity with the offending handle.
func entityError(h Handle) error {
	return fmt.Errorf("handle %d: %w", h, ErrNoEntity)
}
