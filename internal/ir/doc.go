// Package ir holds the value and record types shared by every floorplan package.
//
// ir imports nothing internal. Entity fields, snapshots, catalog specs and
// history events are all expressed with the types defined here, so the
// packages above it never need to agree on anything else.
//
// Key design constraints:
//   - NO float types in field values - lengths are int64 millimetres and
//     angles are int64 millidegrees, so restore is bit-identical
//   - Object keys are hashed in RFC 8785 order (UTF-16 code units)
//   - Logical sequence numbers only, never wall-clock timestamps
//   - All JSON tags use snake_case
package ir
