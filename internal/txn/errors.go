package txn

import (
	"errors"
	"fmt"

	"github.com/roach88/floorplan/internal/graph"
)

// ErrFinished is returned when a Tx is used after Finish or Abort.
var ErrFinished = errors.New("txn: transaction already finished")

// StaleReferenceError is returned by Restore when a state's entity is not in
// the condition the other side of the state promised, typically because a
// later transaction that is still applied deleted it. The history that
// produced the restore can no longer be trusted.
type StaleReferenceError struct {
	Handle graph.Handle
	ID     string
	Reason string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale reference to %s (handle %d): %s", e.ID, e.Handle, e.Reason)
}

// IsStaleReference reports whether err is or wraps a StaleReferenceError.
func IsStaleReference(err error) bool {
	var se *StaleReferenceError
	return errors.As(err, &se)
}
