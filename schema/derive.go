package schema

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/types"
)

// ReservedAccessor is the metadata accessor excluded from derivation. Types
// implement it to name themselves for cross-unit resolution (see Registry);
// it describes the type, not a data field, so it never becomes a column.
const ReservedAccessor = "TypeName"

// Accessor is one discovered accessor of a record type: an exported method
// with no arguments and exactly one result, defined on the value receiver.
type Accessor struct {
	// FieldName is the accessor's name with the first rune lower-cased
	FieldName string
	// Method is the reflected method, invocable against a record value
	Method reflect.Method
}

// Accessors enumerates the exposed accessors of a record type in discovery
// order. The order is reflect's method order, which Go defines as sorted by
// method name; it is therefore stable for a given type across repeated calls
// and across processes, which is what makes independent re-derivation on
// other execution units safe.
//
// Pointer types are unwrapped so T and *T discover the same accessor list.
// The reserved metadata accessor is excluded by name.
func Accessors(t reflect.Type) ([]Accessor, error) {
	if t == nil {
		return nil, errors.WrapInvalid(
			errors.ErrUnsupportedType, "schema", "Accessors", "nil type enumeration")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var accessors []Accessor
	seen := make(map[string]string, t.NumMethod())

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.PkgPath != "" {
			continue // unexported
		}
		if m.Name == ReservedAccessor {
			continue
		}
		// Accessors take no arguments beyond the receiver and return one value.
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue
		}

		name := fieldName(m.Name)
		if prior, dup := seen[name]; dup {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q from accessors %s and %s",
					errors.ErrDuplicateField, name, prior, m.Name),
				"schema", "Accessors", "duplicate accessor name check")
		}
		seen[name] = m.Name

		accessors = append(accessors, Accessor{FieldName: name, Method: m})
	}

	if len(accessors) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrNoAccessors, t.String()),
			"schema", "Accessors", "accessor enumeration")
	}

	return accessors, nil
}

// Derive produces the ordered schema of a record type by walking its
// accessors and resolving each declared result type through the canonical
// type mapping.
//
// Derivation is idempotent: two calls on the same type yield structurally
// equal schemas. It is all-or-nothing: an accessor whose result type has no
// canonical mapping aborts the whole derivation and no partial schema is
// returned.
func Derive(t reflect.Type) (Schema, error) {
	accessors, err := Accessors(t)
	if err != nil {
		return nil, err
	}

	s := make(Schema, 0, len(accessors))
	for _, a := range accessors {
		dataType, nullable, err := types.Map(a.Method.Type.Out(0))
		if err != nil {
			return nil, errors.Wrap(err, "schema", "Derive",
				fmt.Sprintf("mapping accessor %s", a.Method.Name))
		}
		s = append(s, Field{Name: a.FieldName, DataType: dataType, Nullable: nullable})
	}

	return s, nil
}

// DeriveFor is a convenience that derives the schema of a prototype value
func DeriveFor(prototype any) (Schema, error) {
	if prototype == nil {
		return nil, errors.WrapInvalid(
			errors.ErrUnsupportedType, "schema", "DeriveFor", "nil prototype derivation")
	}
	return Derive(reflect.TypeOf(prototype))
}

// fieldName maps an accessor name to its field name: a bean-style "Get"
// prefix is stripped, then the first rune is lower-cased. GetName and Name
// therefore map to the same field, which Accessors rejects as a duplicate.
func fieldName(name string) string {
	if len(name) > 3 && name[:3] == "Get" {
		if r, _ := utf8.DecodeRuneInString(name[3:]); unicode.IsUpper(r) {
			name = name[3:]
		}
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}
