package row

import (
	"context"
	"fmt"
	"reflect"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/schema"
)

// extractor pulls one field's value out of a record. Compiled once per
// accessor when the materializer is built, so per-record extraction is a
// plain closure call rather than a fresh reflective lookup.
type extractor func(reflect.Value) (any, error)

// Materializer extracts rows from records of a single type within one
// partition. It is built per partition: the accessor list is rediscovered
// locally and cached for the partition's lifetime. A materializer is not
// safe for concurrent use; partitions are sequential internally.
type Materializer struct {
	typeName   string
	recordType reflect.Type
	schema     schema.Schema
	extractors []extractor
}

// NewMaterializer resolves typeName against the local registry, re-derives
// the accessor list, and verifies it against the transported shape.
//
// Failure to resolve the type, or disagreement with the shape, is fatal for
// the partition that needed this materializer; there is no partial recovery.
// A nil shape skips the consistency check, for callers that derive and
// materialize on the same execution unit.
func NewMaterializer(typeName string, registry *schema.Registry, shape schema.Shape) (*Materializer, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(
			errors.ErrInvalidConfig, "Materializer", "New", "registry validation")
	}

	t, err := registry.Resolve(typeName)
	if err != nil {
		return nil, errors.Wrap(err, "Materializer", "New", "type resolution")
	}

	local, err := schema.Derive(t)
	if err != nil {
		return nil, errors.Wrap(err, "Materializer", "New", "local schema derivation")
	}

	if shape != nil {
		if err := shape.Verify(local); err != nil {
			return nil, errors.Wrap(err, "Materializer", "New", "shape verification")
		}
	}

	accessors, err := schema.Accessors(t)
	if err != nil {
		return nil, errors.Wrap(err, "Materializer", "New", "accessor discovery")
	}

	extractors := make([]extractor, len(accessors))
	for i, a := range accessors {
		extractors[i] = compile(a)
	}

	return &Materializer{
		typeName:   typeName,
		recordType: t,
		schema:     local,
		extractors: extractors,
	}, nil
}

// Schema returns the locally derived schema. When a shape was supplied it is
// guaranteed structurally equal to the centrally derived one.
func (m *Materializer) Schema() schema.Schema {
	return m.schema
}

// Materialize invokes every accessor in discovery order and collects the
// results into a row. len(row) always equals len(schema).
//
// An accessor that panics, or a record of the wrong type, fails that
// record's materialization entirely. No skip-and-continue mode exists:
// the caller aborts the partition.
func (m *Materializer) Materialize(record any) (Row, error) {
	rv, err := m.receiver(record)
	if err != nil {
		return nil, err
	}

	row := make(Row, len(m.extractors))
	for i, extract := range m.extractors {
		value, err := extract(rv)
		if err != nil {
			return nil, err
		}
		row[i] = value
	}
	return row, nil
}

// MaterializePartition processes records strictly in input order, aborting
// on the first failure. Cancelling ctx abandons the partition partway; no
// partial results are committed.
func (m *Materializer) MaterializePartition(ctx context.Context, records []any) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapTransient(err, "Materializer", "MaterializePartition", "partition processing")
		}
		row, err := m.Materialize(record)
		if err != nil {
			return nil, errors.Wrap(err, "Materializer", "MaterializePartition",
				fmt.Sprintf("record %d materialization", i))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *Materializer) receiver(record any) (reflect.Value, error) {
	if record == nil {
		return reflect.Value{}, errors.WrapInvalid(
			errors.ErrRecordTypeMismatch, "Materializer", "Materialize", "nil record check")
	}

	rv := reflect.ValueOf(record)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, errors.WrapInvalid(
				errors.ErrRecordTypeMismatch, "Materializer", "Materialize", "nil record check")
		}
		rv = rv.Elem()
	}
	if rv.Type() != m.recordType {
		return reflect.Value{}, errors.WrapInvalid(
			fmt.Errorf("%w: got %s, want %s", errors.ErrRecordTypeMismatch, rv.Type(), m.recordType),
			"Materializer", "Materialize", "record type check")
	}
	return rv, nil
}

func compile(a schema.Accessor) extractor {
	fn := a.Method.Func
	name := a.Method.Name

	return func(rv reflect.Value) (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.WrapInvalid(
					fmt.Errorf("%w: accessor %s panicked: %v", errors.ErrAccessorInvocation, name, r),
					"Materializer", "Materialize", "accessor invocation")
			}
		}()

		out := fn.Call([]reflect.Value{rv})[0]
		if out.Kind() == reflect.Pointer {
			if out.IsNil() {
				return nil, nil
			}
			return out.Elem().Interface(), nil
		}
		return out.Interface(), nil
	}
}
