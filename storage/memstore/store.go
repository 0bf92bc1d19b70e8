// Package memstore provides an in-memory Store implementation for tests and
// single-process use. It mirrors the object store's segment layout so the
// two backends are interchangeable in session tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/storage"
)

type store struct {
	schemaData []byte
	segments   [][]byte
}

// Store is an in-memory storage.Store
type Store struct {
	mu     sync.RWMutex
	stores map[string]*store
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store backend
func New() *Store {
	return &Store{stores: make(map[string]*store)}
}

// CreateEmpty materializes an empty store at location
func (s *Store) CreateEmpty(
	ctx context.Context, location string, sch schema.Schema, allowExisting bool, opts storage.Options,
) (storage.Handle, error) {
	if location == "" {
		return storage.Handle{}, errors.WrapInvalid(
			errors.ErrInvalidConfig, "memstore", "CreateEmpty", "location validation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.stores[location]; ok {
		if !allowExisting {
			return storage.Handle{}, errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrStoreExists, location),
				"memstore", "CreateEmpty", "location conflict check")
		}
		existingSchema, err := storage.DecodeSchema(existing.schemaData)
		if err != nil {
			return storage.Handle{}, err
		}
		return storage.NewHandle(location, existingSchema), nil
	}

	schemaData, err := storage.EncodeSchema(sch, opts.Description)
	if err != nil {
		return storage.Handle{}, err
	}

	s.stores[location] = &store{schemaData: schemaData}
	return storage.NewHandle(location, sch), nil
}

// Append writes a new row segment
func (s *Store) Append(ctx context.Context, location string, rows []row.Row) error {
	segment, err := storage.EncodeSegment(rows)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[location]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStoreNotFound, location),
			"memstore", "Append", "store lookup")
	}
	st.segments = append(st.segments, segment)
	return nil
}

// Open reads the store back as (schema, rows) in segment order
func (s *Store) Open(ctx context.Context, location string) (schema.Schema, []row.Row, error) {
	s.mu.RLock()
	st, ok := s.stores[location]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStoreNotFound, location),
			"memstore", "Open", "store lookup")
	}

	sch, err := storage.DecodeSchema(st.schemaData)
	if err != nil {
		return nil, nil, err
	}

	var rows []row.Row
	for _, segment := range st.segments {
		decoded, err := storage.DecodeSegment(segment, sch)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, decoded...)
	}
	return sch, rows, nil
}

// Delete removes the store; absent locations are a no-op
func (s *Store) Delete(ctx context.Context, location string) error {
	s.mu.Lock()
	delete(s.stores, location)
	s.mu.Unlock()
	return nil
}
