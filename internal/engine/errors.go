package engine

import (
	"errors"
	"fmt"
)

// Error represents a history operation the Context refused or could not
// complete.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RequestID identifies the affected request, if any.
	RequestID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes Context errors.
type ErrorCode string

const (
	// ErrCodeNothingToUndo indicates Undo was called with an empty undo stack.
	ErrCodeNothingToUndo ErrorCode = "NOTHING_TO_UNDO"

	// ErrCodeNothingToRedo indicates Redo was called with an empty redo stack.
	ErrCodeNothingToRedo ErrorCode = "NOTHING_TO_REDO"

	// ErrCodeHistoryInvalidated indicates a restore failed and the history
	// was discarded.
	ErrCodeHistoryInvalidated ErrorCode = "HISTORY_INVALIDATED"

	// ErrCodeClosed indicates the Context was closed.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request=%s)", e.RequestID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNothingToUndo reports whether err is an empty-undo-stack error.
func IsNothingToUndo(err error) bool { return hasCode(err, ErrCodeNothingToUndo) }

// IsNothingToRedo reports whether err is an empty-redo-stack error.
func IsNothingToRedo(err error) bool { return hasCode(err, ErrCodeNothingToRedo) }

// IsHistoryInvalidated reports whether the history was discarded.
func IsHistoryInvalidated(err error) bool { return hasCode(err, ErrCodeHistoryInvalidated) }

// IsClosed reports whether err came from a closed Context.
func IsClosed(err error) bool { return hasCode(err, ErrCodeClosed) }

// InvalidStateTransitionError is returned when a lifecycle method is called
// on a request in the wrong state: OnCommit outside Pending, OnUndo outside
// Committed, OnRedo outside Undone. It indicates a caller bug; the request
// is left unchanged.
type InvalidStateTransitionError struct {
	RequestID string
	Op        string
	From      RequestState
	Released  bool // the request already left its history
}

func (e *InvalidStateTransitionError) Error() string {
	msg := fmt.Sprintf("request %s: cannot %s from state %s", e.RequestID, e.Op, e.From)
	if e.Released {
		msg += " (released from history)"
	}
	return msg
}

// IsInvalidStateTransition reports whether err is or wraps an
// InvalidStateTransitionError.
func IsInvalidStateTransition(err error) bool {
	var ie *InvalidStateTransitionError
	return errors.As(err, &ie)
}
