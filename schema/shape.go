package schema

import (
	"encoding/json"
	"fmt"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/types"
)

// FieldTag is one entry of a transportable type shape
type FieldTag struct {
	Name     string              `json:"name"`
	DataType types.CanonicalType `json:"type"`
	Nullable bool                `json:"nullable"`
}

// Shape is the transportable type shape: an ordered list of field tags that,
// unlike a live reflect handle, can cross an execution boundary. A central
// planner derives it once and ships it with the work; each execution unit
// re-derives its own accessor list locally and uses the shipped shape purely
// as a consistency check, turning silent drift into an explicit failure.
type Shape []FieldTag

// Equal reports element-wise equality including order
func (s Shape) Equal(other Shape) bool {
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

// Verify checks a locally derived schema against the transported shape.
// Any difference in field count, order, name, type, or nullability means the
// two execution units disagree about the record type and the partition must
// not be processed.
func (s Shape) Verify(local Schema) error {
	if s.Equal(local.Shape()) {
		return nil
	}
	return errors.WrapFatal(
		fmt.Errorf("%w: transported %v, derived %v", errors.ErrShapeMismatch, s, local.Shape()),
		"schema", "Verify", "shape consistency check")
}

// Marshal serializes the shape for transport
func (s Shape) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.WrapFatal(err, "schema", "Marshal", "shape serialization")
	}
	return data, nil
}

// UnmarshalShape parses a transported shape
func UnmarshalShape(data []byte) (Shape, error) {
	var s Shape
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.WrapInvalid(err, "schema", "UnmarshalShape", "shape deserialization")
	}
	return s, nil
}
