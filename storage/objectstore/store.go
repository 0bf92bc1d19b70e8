// Package objectstore provides a NATS JetStream ObjectStore-backed Store.
// Each store location maps to one bucket: a schema object written at
// creation time plus numbered, immutable row segments.
package objectstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/natsclient"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/storage"
)

const (
	schemaObject  = "schema.json"
	segmentPrefix = "part-"
)

// Store is a storage.Store backed by JetStream object store buckets
type Store struct {
	client *natsclient.Client
	logger *slog.Logger

	// Serializes segment numbering for appends through this instance.
	appendMu sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger attaches a structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates an object-store backend over an established NATS client
func New(client *natsclient.Client, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.WrapInvalid(
			errors.ErrInvalidConfig, "objectstore", "New", "nats client validation")
	}

	s := &Store{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateEmpty creates the bucket for location and writes its schema object.
// An occupied bucket with allowExisting=false is the ErrStoreExists conflict,
// propagated from the backend rather than checked independently here.
func (s *Store) CreateEmpty(
	ctx context.Context, location string, sch schema.Schema, allowExisting bool, opts storage.Options,
) (storage.Handle, error) {
	if location == "" {
		return storage.Handle{}, errors.WrapInvalid(
			errors.ErrInvalidConfig, "objectstore", "CreateEmpty", "location validation")
	}

	bucket, err := s.client.CreateObjectBucket(ctx, jetstream.ObjectStoreConfig{
		Bucket:      location,
		Description: opts.Description,
		MaxBytes:    opts.MaxBytes,
		Replicas:    opts.Replicas,
	})
	if err != nil {
		if !natsclient.IsBucketExists(err) {
			return storage.Handle{}, errors.Wrap(err, "objectstore", "CreateEmpty", "bucket creation")
		}
		if !allowExisting {
			return storage.Handle{}, errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrStoreExists, location),
				"objectstore", "CreateEmpty", "location conflict check")
		}

		// Location occupied and that is acceptable: hand back the existing store.
		existingSchema, _, openErr := s.Open(ctx, location)
		if openErr != nil {
			return storage.Handle{}, openErr
		}
		return storage.NewHandle(location, existingSchema), nil
	}

	schemaData, err := storage.EncodeSchema(sch, opts.Description)
	if err != nil {
		return storage.Handle{}, err
	}
	if _, err := bucket.PutBytes(ctx, schemaObject, schemaData); err != nil {
		return storage.Handle{}, errors.WrapTransient(err, "objectstore", "CreateEmpty", "schema write")
	}

	s.logger.Debug("created empty store", "location", location, "fields", len(sch))
	return storage.NewHandle(location, sch), nil
}

// Append writes the rows as the next numbered segment of the store
func (s *Store) Append(ctx context.Context, location string, rows []row.Row) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	bucket, err := s.openBucket(ctx, location, "Append")
	if err != nil {
		return err
	}

	names, err := s.segmentNames(ctx, bucket)
	if err != nil {
		return err
	}

	segment, err := storage.EncodeSegment(rows)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s%05d.json", segmentPrefix, len(names))
	if _, err := bucket.PutBytes(ctx, name, segment); err != nil {
		return errors.WrapTransient(err, "objectstore", "Append", "segment write")
	}

	s.logger.Debug("appended segment", "location", location, "segment", name, "rows", len(rows))
	return nil
}

// Open reads the store's schema and all segments in segment order
func (s *Store) Open(ctx context.Context, location string) (schema.Schema, []row.Row, error) {
	bucket, err := s.openBucket(ctx, location, "Open")
	if err != nil {
		return nil, nil, err
	}

	schemaData, err := bucket.GetBytes(ctx, schemaObject)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, errors.WrapFatal(
				fmt.Errorf("%w: missing %s in %q", errors.ErrStoreCorrupted, schemaObject, location),
				"objectstore", "Open", "schema read")
		}
		return nil, nil, errors.WrapTransient(err, "objectstore", "Open", "schema read")
	}

	sch, err := storage.DecodeSchema(schemaData)
	if err != nil {
		return nil, nil, err
	}

	names, err := s.segmentNames(ctx, bucket)
	if err != nil {
		return nil, nil, err
	}

	var rows []row.Row
	for _, name := range names {
		data, err := bucket.GetBytes(ctx, name)
		if err != nil {
			return nil, nil, errors.WrapTransient(err, "objectstore", "Open", "segment read")
		}
		decoded, err := storage.DecodeSegment(data, sch)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, decoded...)
	}

	return sch, rows, nil
}

// Delete removes the bucket for location
func (s *Store) Delete(ctx context.Context, location string) error {
	return s.client.DeleteObjectBucket(ctx, location)
}

func (s *Store) openBucket(ctx context.Context, location, op string) (jetstream.ObjectStore, error) {
	bucket, err := s.client.OpenObjectBucket(ctx, location)
	if err != nil {
		if natsclient.IsBucketNotFound(err) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrStoreNotFound, location),
				"objectstore", op, "store lookup")
		}
		return nil, errors.Wrap(err, "objectstore", op, "bucket open")
	}
	return bucket, nil
}

func (s *Store) segmentNames(ctx context.Context, bucket jetstream.ObjectStore) ([]string, error) {
	infos, err := bucket.List(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoObjectsFound) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "objectstore", "List", "object listing")
	}

	var names []string
	for _, info := range infos {
		if strings.HasPrefix(info.Name, segmentPrefix) {
			names = append(names, info.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}
