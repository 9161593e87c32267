// Package txn records what a request did to the entity graph so that the
// request can be undone and redone without running its handler again.
//
// A commit handler mutates the graph through a Tx. The first time the Tx
// touches an entity it captures a pre snapshot of that entity: presence,
// type, parent, ordered children and fields. When the handler returns,
// Finish captures the matching post snapshots, classifies each State as a
// Creation, Modification or Deletion, and propagates dirtyGeometry up the
// parent chain.
//
// Restore replays one side of a set of States. It removes entities the
// target side says are absent, revives those it says are present, rewrites
// fields, parents and child order wholesale, verifies link consistency, and
// re-runs the same dirty propagation the commit ran.
//
// Dirty propagation:
//
// Starting from the entity's parent, every ancestor whose class depends on
// the kind of the node below it on the path is marked dirty. The walk stops
// at the first ancestor that does not depend on the path node, or that is
// already dirty: anything above a dirty node will be recomputed anyway.
package txn
