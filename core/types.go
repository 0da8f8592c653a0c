package core

import (
	"fmt"
	"strconv"
)

// Handle identifies a live entity. Handles come from a per-registry counter
// and are never reused, so a stale handle cannot alias a newer entity.
type Handle uint64

// InvalidHandle is never assigned to an entity
const InvalidHandle Handle = 0

func (h Handle) String() string {
	return "#" + strconv.FormatUint(uint64(h), 10)
}

// ShapeKind selects the body and mesh shape of a new entity
type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeCube
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeCube:
		return "cube"
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// Valid reports whether k names a known shape
func (k ShapeKind) Valid() bool {
	return k == ShapeSphere || k == ShapeCube
}

// ParseShapeKind converts a shape name back into a ShapeKind
func ParseShapeKind(s string) (ShapeKind, error) {
	switch s {
	case "sphere":
		return ShapeSphere, nil
	case "cube":
		return ShapeCube, nil
	}
	return 0, fmt.Errorf("unknown shape kind %q", s)
}
