package storage

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

// EncodeSchema serializes a schema for the store's schema object
func EncodeSchema(s schema.Schema, description string) ([]byte, error) {
	data, err := json.Marshal(struct {
		Description string        `json:"description,omitempty"`
		Fields      schema.Schema `json:"fields"`
	}{Description: description, Fields: s})
	if err != nil {
		return nil, errors.WrapFatal(err, "storage", "EncodeSchema", "schema serialization")
	}
	return data, nil
}

// DecodeSchema parses a stored schema object
func DecodeSchema(data []byte) (schema.Schema, error) {
	var stored struct {
		Fields schema.Schema `json:"fields"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrStoreCorrupted, err),
			"storage", "DecodeSchema", "schema deserialization")
	}
	return stored.Fields, nil
}

// EncodeSegment serializes one row segment
func EncodeSegment(rows []row.Row) ([]byte, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, errors.WrapFatal(err, "storage", "EncodeSegment", "segment serialization")
	}
	return data, nil
}

// DecodeSegment parses a row segment, restoring each value to the runtime
// kind its schema field prescribes. JSON flattens all numbers to float64, so
// the schema is required to reverse the widening deterministically.
func DecodeSegment(data []byte, s schema.Schema) ([]row.Row, error) {
	var raw []row.Row
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrStoreCorrupted, err),
			"storage", "DecodeSegment", "segment deserialization")
	}

	for _, r := range raw {
		if len(r) != len(s) {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: row has %d values, schema has %d fields",
					errors.ErrStoreCorrupted, len(r), len(s)),
				"storage", "DecodeSegment", "row length check")
		}
		for i, f := range s {
			value, err := restore(r[i], f)
			if err != nil {
				return nil, err
			}
			r[i] = value
		}
	}
	return raw, nil
}

func restore(value any, f schema.Field) (any, error) {
	if value == nil {
		if !f.Nullable {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: null value in non-nullable field %s", errors.ErrStoreCorrupted, f.Name),
				"storage", "DecodeSegment", "null check")
		}
		return nil, nil
	}

	switch f.DataType {
	case types.String:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case types.Boolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case types.Byte:
		if n, ok := value.(float64); ok && integralInRange(n, math.MinInt8, math.MaxInt8) {
			return int8(n), nil
		}
	case types.Short:
		if n, ok := value.(float64); ok && integralInRange(n, math.MinInt16, math.MaxInt16) {
			return int16(n), nil
		}
	case types.Integer:
		if n, ok := value.(float64); ok && integralInRange(n, math.MinInt32, math.MaxInt32) {
			return int32(n), nil
		}
	case types.Long:
		// 1<<63 is exactly representable in float64; MaxInt64 is not, so the
		// upper bound is exclusive.
		if n, ok := value.(float64); ok && n == math.Trunc(n) &&
			n >= math.MinInt64 && n < float64(1<<63) {
			return int64(n), nil
		}
	case types.Float:
		if n, ok := value.(float64); ok && (n == 0 || math.Abs(n) <= math.MaxFloat32) {
			return float32(n), nil
		}
	case types.Double:
		if n, ok := value.(float64); ok {
			return n, nil
		}
	}

	return nil, errors.WrapFatal(
		fmt.Errorf("%w: value %v cannot restore to field %s", errors.ErrStoreCorrupted, value, f),
		"storage", "DecodeSegment", "value restoration")
}

// integralInRange reports whether n is a whole number representable in the
// integer range [min, max]. A stored number outside its field's range is
// corruption, not something to truncate into a plausible value.
func integralInRange(n, min, max float64) bool {
	return n == math.Trunc(n) && n >= min && n <= max
}
