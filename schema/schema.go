// Package schema derives ordered, typed schemas from registered record types
// and defines the transportable type shape used to keep independent
// derivations in agreement across execution units.
package schema

import (
	"fmt"
	"strings"

	"github.com/falaki/spark/types"
)

// Field describes one column of a schema. Immutable once constructed; order
// within a Schema is significant and part of the schema's identity.
type Field struct {
	Name     string              `json:"name"`
	DataType types.CanonicalType `json:"type"`
	Nullable bool                `json:"nullable"`
}

// String returns a compact readable form such as "age:integer" or "name:string?"
func (f Field) String() string {
	suffix := ""
	if f.Nullable {
		suffix = "?"
	}
	return fmt.Sprintf("%s:%s%s", f.Name, f.DataType, suffix)
}

// Schema is an ordered sequence of Fields. Two schemas are structurally equal
// iff their field sequences are equal element-wise including order.
type Schema []Field

// Equal reports structural equality: same fields, same order, same types and
// nullability
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// FieldIndex returns the position of the named field, or -1 if absent
func (s Schema) FieldIndex(name string) int {
	for i := range s {
		if s[i].Name == name {
			return i
		}
	}
	return -1
}

// String renders the schema as "[name:string?, age:integer]"
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Shape returns the transportable projection of the schema: the value a
// central planner ships to execution units so each unit can verify its own
// independent derivation instead of silently trusting agreement.
func (s Schema) Shape() Shape {
	shape := make(Shape, len(s))
	for i, f := range s {
		shape[i] = FieldTag{Name: f.Name, DataType: f.DataType, Nullable: f.Nullable}
	}
	return shape
}
