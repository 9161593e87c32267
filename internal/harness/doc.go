// Package harness runs document edit scenarios and checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: wall_edit_round_trip
//	description: "Edits survive undo and redo"
//	catalog: builtin            # or a CUE catalog directory, relative to the file
//	document_id: plan
//	setup:
//	  - {op: create, type: Layer, id: ground}
//	  - {op: create, type: Wall, id: w1, parent: ground}
//	steps:
//	  - do: request
//	    description: lengthen wall
//	    ops:
//	      - {op: set, id: w1, field: x2, value: 5000}
//	  - do: undo
//	  - do: undo
//	    expect_error: nothing_to_undo
//	assertions:
//	  - {type: field, id: w1, field: x2, value: 0}
//	  - {type: history, undo: 0, redo: 1}
//
// Setup ops run as one request outside the recorded history. Steps are
// request, batch, undo, redo, rebuild and detached; a detached step edits
// the graph behind the history's back, which is how scenarios provoke stale
// references.
//
// # Assertion Types
//
//   - field: an entity field equals value
//   - absent: an entity (or, with field, one of its fields) does not exist
//   - exists: an entity exists
//   - children: the ordered child ids of id (roots when id is empty)
//   - dirty: exactly ids carry dirtyGeometry
//   - clean: ids (every entity when empty) do not carry dirtyGeometry
//   - constraint_order: the keys constraint collection yields under id
//   - violations: the constraint keys the checker rejects under id
//   - history: undo and redo stack depths
//   - state_hash_matches: the final graph hash equals the hash after step
//     (0 is after setup)
//   - trace_ops: the sequence of history ops journaled
//
// # Deterministic Testing
//
// Request ids come from testutil.SequenceGenerator and journal seqs from the
// engine's logical clock, so a scenario run twice produces identical traces.
// Golden traces replace graph hashes with labels (s0 is the post-setup
// state) so they stay readable.
package harness
