// Package graph implements the entity graph of a floorplan document.
//
// Entities live in an arena owned by a Graph and are addressed by stable
// integer Handles. A parent is stored as a Handle and children as an owned,
// ordered list of Handles, so there is no shared ownership and no reference
// cycle between parent and child. Handles are never reused within a Graph,
// which lets a restored entity come back under the handle it had before.
//
// Entity types come from an explicit Registry passed to New. There is no
// process-wide registry; independent documents (and tests) use independent
// registries.
//
// # Edit Gate
//
// Every structural or field mutation goes through a Mutator, and a Mutator
// only works inside Graph.Edit. Commit handlers, undo and redo run inside
// Edit; everything else sees a read-only graph. The single exception is
// ClearDirty, which the post-transaction rebuild pass uses.
//
// A Graph is not safe for concurrent use. One Context owns one Graph.
package graph
