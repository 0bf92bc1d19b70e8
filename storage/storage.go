// Package storage defines the pluggable persistent store boundary: creating
// empty stores with a fixed schema, appending row segments, and reading a
// store back as (schema, rows).
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
)

// Options carries backend settings for store creation
type Options struct {
	// Description is stored alongside the schema for operators
	Description string
	// Replicas is the backend replication factor, when supported
	Replicas int
	// MaxBytes bounds the store size, when supported; 0 means unlimited
	MaxBytes int64
}

// Handle identifies a created store
type Handle struct {
	ID       string        `json:"id"`
	Location string        `json:"location"`
	Schema   schema.Schema `json:"schema"`
}

// NewHandle mints a handle for a store at location
func NewHandle(location string, s schema.Schema) Handle {
	return Handle{
		ID:       uuid.NewString(),
		Location: location,
		Schema:   s,
	}
}

// Store is the persistent columnar store collaborator.
//
// Implementations must be safe for concurrent use. CreateEmpty with
// allowExisting=false fails with errors.ErrStoreExists when the location is
// occupied; with allowExisting=true an occupied location is left as it is
// and a handle to it is returned.
type Store interface {
	// CreateEmpty materializes an empty store at location with the given schema
	CreateEmpty(ctx context.Context, location string, s schema.Schema, allowExisting bool, opts Options) (Handle, error)

	// Append writes a new row segment to an existing store
	Append(ctx context.Context, location string, rows []row.Row) error

	// Open reads a store back as its schema and all rows in segment order
	Open(ctx context.Context, location string) (schema.Schema, []row.Row, error)

	// Delete removes the store at location; removing an absent store is a no-op
	Delete(ctx context.Context, location string) error
}
