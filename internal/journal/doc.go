// Package journal persists document history transitions in SQLite.
//
// The journal is append-only. Every commit, undo, redo, eviction and
// invalidation a Context performs becomes one row, so a document's edit
// history can be audited after the process exits. The journal records what
// happened; it is never read back to rebuild a graph.
package journal
