package ir

// Version constants for records and the engine.
const (
	// SchemaVersion is the version of the record types in this package.
	SchemaVersion = "1"

	// EngineVersion is the floorplan engine version.
	EngineVersion = "0.1.0"
)
