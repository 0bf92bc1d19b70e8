package infer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

// JSON infers a schema from a sample of JSON object records and materializes
// every record against it.
//
// Scalar types widen over the lattice Boolean < Long < Double < String as
// conflicting samples appear; keys are ordered by first appearance across the
// sample. Every inferred field is nullable, since any record may omit any
// key. When opts.Schema is supplied inference is skipped entirely.
func JSON(records [][]byte, opts Options) (schema.Schema, []row.Row, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, nil, err
	}

	docs := make([]map[string]any, len(records))
	for i, record := range records {
		var doc map[string]any
		if err := json.Unmarshal(record, &doc); err != nil {
			return nil, nil, errors.WrapInvalid(
				fmt.Errorf("record %d: %v", i, err),
				"infer", "JSON", "record parsing")
		}
		docs[i] = doc
	}

	var sch schema.Schema
	if opts.Schema != nil {
		sch = *opts.Schema
	} else {
		sch, err = inferJSONSchema(docs, opts.sampleSize(len(docs)))
		if err != nil {
			return nil, nil, err
		}
	}

	rows := make([]row.Row, len(docs))
	for i, doc := range docs {
		r, err := jsonRow(doc, sch)
		if err != nil {
			return nil, nil, errors.Wrap(err, "infer", "JSON",
				fmt.Sprintf("record %d materialization", i))
		}
		rows[i] = r
	}

	return sch, rows, nil
}

func inferJSONSchema(docs []map[string]any, sample int) (schema.Schema, error) {
	var order []string
	kinds := make(map[string]types.CanonicalType)

	for _, doc := range docs[:sample] {
		for _, key := range jsonKeys(doc) {
			value := doc[key]
			if value == nil {
				if _, seen := kinds[key]; !seen {
					order = append(order, key)
					kinds[key] = types.String
				}
				continue
			}

			kind, err := jsonScalarKind(key, value)
			if err != nil {
				return nil, err
			}

			if prior, seen := kinds[key]; seen {
				kinds[key] = widen(prior, kind)
			} else {
				order = append(order, key)
				kinds[key] = kind
			}
		}
	}

	sch := make(schema.Schema, len(order))
	for i, key := range order {
		sch[i] = schema.Field{Name: key, DataType: kinds[key], Nullable: true}
	}
	return sch, nil
}

// jsonKeys returns a document's keys in lexicographic order. Go maps do not
// preserve object order, so per-document iteration order must be normalized
// for the inferred field order to be stable.
func jsonKeys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func jsonScalarKind(key string, value any) (types.CanonicalType, error) {
	switch v := value.(type) {
	case bool:
		return types.Boolean, nil
	case string:
		return types.String, nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return types.Long, nil
		}
		return types.Double, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: key %q holds non-scalar %T", errors.ErrUnsupportedType, key, value),
			"infer", "JSON", "scalar kind detection")
	}
}

// widen resolves two observed kinds for the same key to the wider one
func widen(a, b types.CanonicalType) types.CanonicalType {
	if a == b {
		return a
	}
	rank := map[types.CanonicalType]int{
		types.Boolean: 0,
		types.Long:    1,
		types.Double:  2,
		types.String:  3,
	}
	ra, aOK := rank[a]
	rb, bOK := rank[b]
	if !aOK || !bOK {
		return types.String
	}
	// Boolean and anything else widen to String: neither contains the other.
	if a == types.Boolean || b == types.Boolean {
		return types.String
	}
	if ra > rb {
		return a
	}
	return b
}

func jsonRow(doc map[string]any, sch schema.Schema) (row.Row, error) {
	r := make(row.Row, len(sch))
	for i, f := range sch {
		value, ok := doc[f.Name]
		if !ok || value == nil {
			r[i] = nil
			continue
		}
		coerced, err := coerceJSON(value, f)
		if err != nil {
			return nil, err
		}
		r[i] = coerced
	}
	return r, nil
}

func coerceJSON(value any, f schema.Field) (any, error) {
	switch f.DataType {
	case types.String:
		switch v := value.(type) {
		case string:
			return v, nil
		case bool:
			return strconv.FormatBool(v), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		}
	case types.Boolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case types.Long:
		if n, ok := value.(float64); ok && n == math.Trunc(n) {
			return int64(n), nil
		}
	case types.Double:
		if n, ok := value.(float64); ok {
			return n, nil
		}
	}

	return nil, errors.WrapInvalid(
		fmt.Errorf("%w: value %v for field %s", errors.ErrRecordTypeMismatch, value, f),
		"infer", "JSON", "value coercion")
}
