// Package row materializes schema-conformant rows from opaque records.
//
// Materialization runs once per partition on whatever execution unit holds
// that partition. A unit never receives a live reflect handle: it re-resolves
// the record type by name from its local registry, re-discovers its accessors
// with the same procedure schema derivation uses, and verifies the result
// against the transported shape. Correctness under distribution is purchased
// by recomputation, not by transporting reflective state.
package row

import (
	"fmt"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

// Row is an ordered sequence of values, one per schema field. The nil value
// is the null marker and is legal only in nullable slots. Rows are never
// mutated after creation.
type Row []any

// Conforms checks that the row's length and value kinds match the schema.
// A violation is a materialization defect, not a recoverable condition; the
// check exists for collaborators that must validate row shape and for tests.
func (r Row) Conforms(s schema.Schema) error {
	if len(r) != len(s) {
		return errors.WrapFatal(
			fmt.Errorf("row has %d values, schema has %d fields", len(r), len(s)),
			"row", "Conforms", "row length check")
	}
	for i, f := range s {
		if !types.KindOf(r[i], f.DataType, f.Nullable) {
			return errors.WrapFatal(
				fmt.Errorf("value %d (%v) does not conform to field %s", i, r[i], f),
				"row", "Conforms", "value kind check")
		}
	}
	return nil
}
