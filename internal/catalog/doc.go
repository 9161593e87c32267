// Package catalog compiles CUE entity catalogs into the class and
// relationship descriptors a document registers.
//
// A catalog declares classes and relationship types:
//
//	class: Wall: {
//		kind: "wall"
//		fields: {x1: 0, y1: 0, x2: 0, y2: 0, thickness: 100}
//		tracked: ["x1", "y1", "x2", "y2", "thickness"]
//		depends_on: ["opening"]
//		selectable: true
//		constraints: [{name: "min_thickness", rule: "min", field: "thickness", value: 50}]
//	}
//
//	relationship: WallJoint: {
//		model: "joint"
//		defaults: {gap: 10}
//	}
//
// Field defaults are integers, strings, booleans, lists or structs. Floats
// are rejected: every length in a document is an integer number of
// millimetres.
package catalog
