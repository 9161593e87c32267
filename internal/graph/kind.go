package graph

import "fmt"

// Kind is the closed set of entity categories. Code that branches on an
// entity's category switches over Kind; there is no optional-method probing.
type Kind uint8

const (
	KindAssembly Kind = iota + 1
	KindLayer
	KindWall
	KindSlab
	KindFace
	KindVertex
	KindOpening
	KindGrid
	KindMolding
	KindRoom
	KindRelationship
)

// Kinds lists every valid kind in declaration order.
var Kinds = []Kind{
	KindAssembly,
	KindLayer,
	KindWall,
	KindSlab,
	KindFace,
	KindVertex,
	KindOpening,
	KindGrid,
	KindMolding,
	KindRoom,
	KindRelationship,
}

// String returns the lower-case catalog name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAssembly:
		return "assembly"
	case KindLayer:
		return "layer"
	case KindWall:
		return "wall"
	case KindSlab:
		return "slab"
	case KindFace:
		return "face"
	case KindVertex:
		return "vertex"
	case KindOpening:
		return "opening"
	case KindGrid:
		return "grid"
	case KindMolding:
		return "molding"
	case KindRoom:
		return "room"
	case KindRelationship:
		return "relationship"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindAssembly && k <= KindRelationship
}

// ParseKind maps a catalog name back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}
