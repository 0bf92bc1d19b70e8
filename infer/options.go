// Package infer provides the sampling-based schema inference collaborators
// for semi-structured sources: JSON documents and delimited text. Both honor
// the same options contract and produce (schema, rows) pairs whose rows
// conform to the inferred or overridden schema.
package infer

import (
	"fmt"
	"math"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/schema"
)

// Options configures inference for both collaborators
type Options struct {
	// SampleRatio is the fraction of records scanned to infer the schema,
	// in (0.0, 1.0]. The zero value means scan everything.
	SampleRatio float64

	// Delimiter separates fields of delimited text; the zero value means ','
	Delimiter rune

	// Quote wraps delimited fields that contain the delimiter; the zero
	// value means '"'
	Quote rune

	// Header marks the first delimited record as field names rather than data
	Header bool

	// Schema bypasses inference entirely when supplied
	Schema *schema.Schema
}

// normalized fills zero values with defaults and validates the rest
func (o Options) normalized() (Options, error) {
	if o.SampleRatio == 0 {
		o.SampleRatio = 1.0
	}
	if o.SampleRatio < 0 || o.SampleRatio > 1.0 {
		return o, errors.WrapInvalid(
			fmt.Errorf("%w: sample ratio %v outside (0.0, 1.0]", errors.ErrInvalidConfig, o.SampleRatio),
			"infer", "Options", "sample ratio validation")
	}
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Quote == 0 {
		o.Quote = '"'
	}
	if o.Delimiter == o.Quote {
		return o, errors.WrapInvalid(
			fmt.Errorf("%w: delimiter and quote are both %q", errors.ErrInvalidConfig, o.Delimiter),
			"infer", "Options", "delimiter validation")
	}
	return o, nil
}

// sampleSize returns how many of n records the ratio covers, rounding up so
// a non-empty input always contributes at least one record
func (o Options) sampleSize(n int) int {
	if n == 0 {
		return 0
	}
	size := int(math.Ceil(o.SampleRatio * float64(n)))
	if size > n {
		size = n
	}
	return size
}
