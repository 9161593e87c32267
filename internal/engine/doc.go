// Package engine implements the request state machine and the per-document
// Context that owns a graph's undo/redo history.
//
// ARCHITECTURE:
//
// Single Writer:
// A Context is owned by exactly one open document and is driven from one
// goroutine. Every request runs to completion on the caller's goroutine:
// there are no suspension points inside commit, undo or redo, and nothing
// runs in the background. A Context is not safe for concurrent use.
//
// Request Lifecycle:
//
//	Pending --OnCommit--> Committed --OnUndo--> Undone --OnRedo--> Committed
//
// OnCommit runs the request's Handler inside a graph edit with a txn.Tx.
// If the handler fails, the Tx is aborted, no TxnState survives, and the
// request stays Pending. OnUndo and OnRedo replay the recorded states; the
// handler never runs again.
//
// Batches:
// A BatchRequest commits its sub-requests in order, undoes them in reverse
// and redoes them forward. If sub-request k fails to commit, sub-requests
// k-1..1 are undone before the original error is returned.
//
// History:
// Context.Submit pushes committed requests on a strict LIFO undo stack.
// A new submit clears the redo stack. A StaleReferenceError during undo or
// redo means the graph no longer matches the history, so the whole history
// is invalidated rather than partially replayed.
//
// Geometry rebuilds triggered by dirtyGeometry run after the transaction
// boundary, outside this package (see internal/geometry).
package engine
