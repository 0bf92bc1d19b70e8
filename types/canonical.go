// Package types defines the canonical scalar type enumeration and the fixed
// mapping from Go scalar types to canonical types.
//
// The mapping operates over two parallel families: value scalar types map with
// nullable=false, their pointer counterparts map to the same canonical type
// with nullable=true. Strings always map nullable since the null marker is the
// only way to represent an absent string value in a row.
package types

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/falaki/spark/errors"
)

// CanonicalType is one member of the fixed scalar type enumeration used by
// the schema and row model. The enumeration is closed: it is not extensible
// at runtime, and adding a member requires extending the mapping table.
type CanonicalType int

const (
	// String is a UTF-8 string value
	String CanonicalType = iota
	// Byte is an 8-bit signed integer
	Byte
	// Short is a 16-bit signed integer
	Short
	// Integer is a 32-bit signed integer
	Integer
	// Long is a 64-bit signed integer
	Long
	// Float is a 32-bit floating point value
	Float
	// Double is a 64-bit floating point value
	Double
	// Boolean is a true/false value
	Boolean
)

var canonicalNames = map[CanonicalType]string{
	String:  "string",
	Byte:    "byte",
	Short:   "short",
	Integer: "integer",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Boolean: "boolean",
}

// String returns the canonical name of the type
func (ct CanonicalType) String() string {
	if name, ok := canonicalNames[ct]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether ct is a member of the enumeration
func (ct CanonicalType) Valid() bool {
	_, ok := canonicalNames[ct]
	return ok
}

// MarshalJSON serializes the type by canonical name so shapes and schemas
// remain readable and stable across versions
func (ct CanonicalType) MarshalJSON() ([]byte, error) {
	if !ct.Valid() {
		return nil, fmt.Errorf("cannot marshal unknown canonical type %d", int(ct))
	}
	return json.Marshal(ct.String())
}

// UnmarshalJSON parses a canonical type from its name
func (ct *CanonicalType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for t, n := range canonicalNames {
		if n == name {
			*ct = t
			return nil
		}
	}
	return fmt.Errorf("unknown canonical type name %q", name)
}

// Mapping is one entry of the type mapping table
type Mapping struct {
	DataType CanonicalType
	Nullable bool
}

// Value scalar kinds. Go's plain int is mapped to Integer alongside int32:
// the engine treats both as the 32-bit integer column type.
var kindMappings = map[reflect.Kind]Mapping{
	reflect.String:  {String, true},
	reflect.Int8:    {Byte, false},
	reflect.Int16:   {Short, false},
	reflect.Int32:   {Integer, false},
	reflect.Int:     {Integer, false},
	reflect.Int64:   {Long, false},
	reflect.Float32: {Float, false},
	reflect.Float64: {Double, false},
	reflect.Bool:    {Boolean, false},
}

// Map resolves a Go type to its canonical data type and nullability.
//
// Pointer scalars form the "boxed" family: *int32 maps to (Integer, true)
// while int32 maps to (Integer, false). The nil pointer is the null marker.
//
// Map is pure and safe for concurrent use. It returns ErrUnsupportedType for
// any type outside the table; the failure is deterministic, so callers must
// not retry.
func Map(t reflect.Type) (CanonicalType, bool, error) {
	if t == nil {
		return 0, false, errors.WrapInvalid(
			errors.ErrUnsupportedType, "types", "Map", "nil type resolution")
	}

	boxed := false
	if t.Kind() == reflect.Pointer {
		boxed = true
		t = t.Elem()
	}

	m, ok := kindMappings[t.Kind()]
	if !ok {
		return 0, false, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnsupportedType, t.String()),
			"types", "Map", "canonical mapping lookup")
	}

	if boxed {
		return m.DataType, true, nil
	}
	return m.DataType, m.Nullable, nil
}

// KindOf reports whether a runtime value conforms to the canonical type,
// treating nil as conforming only when nullable is true. Used by row shape
// validation and tests.
func KindOf(value any, ct CanonicalType, nullable bool) bool {
	if value == nil {
		return nullable
	}

	switch ct {
	case String:
		_, ok := value.(string)
		return ok
	case Byte:
		_, ok := value.(int8)
		return ok
	case Short:
		_, ok := value.(int16)
		return ok
	case Integer:
		switch value.(type) {
		case int32, int:
			return true
		}
		return false
	case Long:
		_, ok := value.(int64)
		return ok
	case Float:
		_, ok := value.(float32)
		return ok
	case Double:
		_, ok := value.(float64)
		return ok
	case Boolean:
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}
