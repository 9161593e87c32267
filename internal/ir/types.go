package ir

// ClassSpec is a compiled entity class from a catalog.
type ClassSpec struct {
	Name        string           `json:"name"`
	Kind        string           `json:"kind"`                 // one of the graph kinds, lower-case
	Fields      Object           `json:"fields"`               // field name -> default value
	Tracked     []string         `json:"tracked,omitempty"`    // relevant fields for field-level snapshots
	DependsOn   []string         `json:"depends_on,omitempty"` // kinds whose shape this class derives from
	Selectable  bool             `json:"selectable"`
	Constraints []ConstraintSpec `json:"constraints,omitempty"` // empty = no constraint capability
}

// ConstraintSpec declares one constraint a class contributes per entity.
type ConstraintSpec struct {
	Name  string `json:"name"`
	Rule  string `json:"rule"`            // "min", "max", "positive", "coincident", "aligned"
	Field string `json:"field,omitempty"` // field the rule reads
	Value int64  `json:"value,omitempty"` // bound for min/max
}

// Constraint rule names understood by the reference solver.
const (
	RuleMin        = "min"
	RuleMax        = "max"
	RulePositive   = "positive"
	RuleCoincident = "coincident"
	RuleAligned    = "aligned"
)

// ValidRules lists the accepted constraint rules.
var ValidRules = map[string]bool{
	RuleMin:        true,
	RuleMax:        true,
	RulePositive:   true,
	RuleCoincident: true,
	RuleAligned:    true,
}

// RelationshipSpec is a compiled relationship configuration.
type RelationshipSpec struct {
	Name     string `json:"name"`
	Model    string `json:"model"`    // constructor registered with the relation factory
	Defaults Object `json:"defaults"` // default construction options
}

// Catalog is the compiled content of one or more catalog files.
type Catalog struct {
	Classes       []ClassSpec        `json:"classes"`
	Relationships []RelationshipSpec `json:"relationships"`
}

// HistoryOp names a history transition recorded in the journal.
type HistoryOp string

const (
	OpCommit     HistoryOp = "commit"
	OpUndo       HistoryOp = "undo"
	OpRedo       HistoryOp = "redo"
	OpEvict      HistoryOp = "evict"
	OpInvalidate HistoryOp = "invalidate"
)

// HistoryEvent is one history transition of one document.
type HistoryEvent struct {
	Seq         int64     `json:"seq"` // logical clock, never wall time
	DocumentID  string    `json:"document_id"`
	RequestID   string    `json:"request_id"`
	Op          HistoryOp `json:"op"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	StateHash   string    `json:"state_hash"` // graph hash after the transition
	States      int       `json:"states"`     // TxnStates held by the request
}
