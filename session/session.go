package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/falaki/spark/catalog"
	"github.com/falaki/spark/config"
	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/infer"
	"github.com/falaki/spark/metric"
	"github.com/falaki/spark/natsclient"
	"github.com/falaki/spark/pkg/cache"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/storage"
	"github.com/falaki/spark/storage/objectstore"
)

// Session is the façade over the bridge: one registry of record types, one
// catalog of named tables, one partition runner, and optionally one
// persistent store. Sessions are independent; tables registered on one are
// invisible to another.
type Session struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *schema.Registry
	catalog  *catalog.Catalog
	runner   *row.Runner
	store    storage.Store
	metrics  *metric.Metrics
	schemas  cache.Cache[schema.Schema]
	nats     *natsclient.Client
}

// Option configures a Session
type Option func(*Session) error

// WithLogger attaches a structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		s.logger = logger
		return nil
	}
}

// WithStore injects a persistent store backend. The session does not own
// the backend's lifecycle.
func WithStore(store storage.Store) Option {
	return func(s *Session) error {
		s.store = store
		return nil
	}
}

// WithObjectStore dials the configured NATS server and backs the session's
// store with JetStream object buckets. The connection is owned by the
// session and drained on Close. The NATS block of the configuration is only
// required, and only checked, when this option is used.
func WithObjectStore() Option {
	return func(s *Session) error {
		nc := s.cfg.NATS
		if nc.URL == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: nats.url", errors.ErrMissingConfig),
				"Session", "WithObjectStore", "nats configuration check")
		}

		clientOpts := []natsclient.Option{
			natsclient.WithLogger(s.logger),
			natsclient.WithReconnects(nc.MaxReconnects, nc.ReconnectWait),
		}
		if nc.Username != "" {
			clientOpts = append(clientOpts, natsclient.WithUserInfo(nc.Username, nc.Password))
		}
		if nc.Token != "" {
			clientOpts = append(clientOpts, natsclient.WithToken(nc.Token))
		}

		client, err := natsclient.Connect(nc.URL, clientOpts...)
		if err != nil {
			return errors.WrapTransient(err, "Session", "WithObjectStore", "nats connection")
		}
		store, err := objectstore.New(client, objectstore.WithLogger(s.logger))
		if err != nil {
			client.Close()
			return err
		}
		s.nats = client
		s.store = store
		return nil
	}
}

// WithMetricsRegistry registers the session's core metrics for scraping
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(s *Session) error {
		s.metrics = registry.CoreMetrics()
		return nil
	}
}

// New creates a session from a validated configuration
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: schema.NewRegistry(),
		catalog:  catalog.New(),
		metrics:  metric.NewMetrics(),
		schemas:  cache.NewLRU[schema.Schema](256),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.runner = row.NewRunner(s.registry,
		row.WithWorkers(cfg.Runtime.Workers),
		row.WithMetrics(s.metrics),
		row.WithLogger(s.logger))

	return s, nil
}

// Registry exposes the session's record type registry
func (s *Session) Registry() *schema.Registry {
	return s.registry
}

// Catalog exposes the session's table catalog
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// DeriveSchema registers the prototype's type and returns its derived
// schema. Derivations are cached per type name, so repeated datasets of the
// same type skip rediscovery.
func (s *Session) DeriveSchema(prototype any) (schema.Schema, error) {
	typeName, err := s.registry.Register(prototype)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.schemas.Get(typeName); ok {
		return cached, nil
	}

	derived, err := schema.Derive(reflect.TypeOf(prototype))
	if err != nil {
		s.metrics.DeriveFailures.WithLabelValues(typeName, errors.Classify(err).String()).Inc()
		return nil, err
	}

	if _, err := s.schemas.Set(typeName, derived); err != nil {
		s.logger.Warn("schema cache rejected entry", "type", typeName, "error", err)
	}
	s.metrics.SchemasDerived.WithLabelValues(typeName).Inc()
	return derived, nil
}

// CreateDataset derives a schema from the prototype and materializes every
// partition of records against it. All records must be of the prototype's
// type; the first mismatch aborts its partition.
func (s *Session) CreateDataset(ctx context.Context, prototype any, partitions [][]any) (*Dataset, error) {
	derived, err := s.DeriveSchema(prototype)
	if err != nil {
		return nil, err
	}
	typeName, err := s.registry.Register(prototype)
	if err != nil {
		return nil, err
	}

	rows, err := s.runner.Run(ctx, typeName, derived.Shape(), partitions)
	if err != nil {
		return nil, err
	}

	return &Dataset{session: s, schema: derived, partitions: rows}, nil
}

// CreateDatasetFromJSON infers a schema from JSON object records and
// materializes them as a single-partition dataset.
func (s *Session) CreateDatasetFromJSON(records [][]byte, opts infer.Options) (*Dataset, error) {
	opts = s.withInferDefaults(opts)
	inferred, rows, err := infer.JSON(records, opts)
	if err != nil {
		return nil, err
	}
	return &Dataset{session: s, schema: inferred, partitions: [][]row.Row{rows}}, nil
}

// CreateDatasetFromDelimited infers a schema from delimited text and
// materializes it as a single-partition dataset.
func (s *Session) CreateDatasetFromDelimited(r io.Reader, opts infer.Options) (*Dataset, error) {
	opts = s.withInferDefaults(opts)
	inferred, rows, err := infer.Delimited(r, opts)
	if err != nil {
		return nil, err
	}
	return &Dataset{session: s, schema: inferred, partitions: [][]row.Row{rows}}, nil
}

// withInferDefaults fills unset inference options from the session config
func (s *Session) withInferDefaults(opts infer.Options) infer.Options {
	if opts.SampleRatio == 0 {
		opts.SampleRatio = s.cfg.Infer.SampleRatio
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = []rune(s.cfg.Infer.Delimiter)[0]
	}
	if opts.Quote == 0 {
		opts.Quote = []rune(s.cfg.Infer.Quote)[0]
	}
	return opts
}

// RegisterTable binds the dataset under name in the session catalog.
// Re-registering a name replaces the previous binding.
func (s *Session) RegisterTable(name string, ds *Dataset) error {
	if ds == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil dataset for table %q", errors.ErrInvalidConfig, name),
			"Session", "RegisterTable", "dataset check")
	}

	partitions, err := ds.resolve()
	if err != nil {
		return err
	}
	if err := s.catalog.Register(name, catalog.Table{
		Schema:     ds.schema,
		Partitions: partitions,
	}); err != nil {
		return err
	}

	s.metrics.TablesRegistered.Set(float64(s.catalog.Size()))
	s.logger.Info("table registered", "table", name, "fields", len(ds.schema))
	return nil
}

// Table returns the dataset bound under name
func (s *Session) Table(name string) (*Dataset, error) {
	table, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &Dataset{session: s, schema: table.Schema, partitions: table.Partitions}, nil
}

// DropTable removes the binding under name; dropping an absent name is a no-op
func (s *Session) DropTable(name string) {
	if s.catalog.Drop(name) {
		s.metrics.TablesRegistered.Set(float64(s.catalog.Size()))
	}
}

// CreateEmptyStore derives a schema from the prototype and creates an empty
// persistent store at location. With allowExisting=false an occupied
// location fails with errors.ErrStoreExists.
func (s *Session) CreateEmptyStore(
	ctx context.Context, prototype any, location string, allowExisting bool, opts storage.Options,
) (storage.Handle, error) {
	if s.store == nil {
		return storage.Handle{}, errors.WrapInvalid(
			fmt.Errorf("%w: session has no store backend", errors.ErrMissingConfig),
			"Session", "CreateEmptyStore", "store check")
	}

	derived, err := s.DeriveSchema(prototype)
	if err != nil {
		return storage.Handle{}, err
	}

	handle, err := s.store.CreateEmpty(ctx, location, derived, allowExisting, opts)
	s.observeStore("create", err)
	if err != nil {
		return storage.Handle{}, err
	}

	s.logger.Info("store created", "location", location, "id", handle.ID)
	return handle, nil
}

// CreateEmptyStoreWithSchema creates an empty persistent store at location
// with an explicit schema. Inferred datasets have no prototype to derive
// from; their schema is passed here directly.
func (s *Session) CreateEmptyStoreWithSchema(
	ctx context.Context, sch schema.Schema, location string, allowExisting bool, opts storage.Options,
) (storage.Handle, error) {
	if s.store == nil {
		return storage.Handle{}, errors.WrapInvalid(
			fmt.Errorf("%w: session has no store backend", errors.ErrMissingConfig),
			"Session", "CreateEmptyStoreWithSchema", "store check")
	}

	handle, err := s.store.CreateEmpty(ctx, location, sch, allowExisting, opts)
	s.observeStore("create", err)
	if err != nil {
		return storage.Handle{}, err
	}
	return handle, nil
}

// SaveDataset appends every row of the dataset to the store at location
func (s *Session) SaveDataset(ctx context.Context, location string, ds *Dataset) error {
	if s.store == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: session has no store backend", errors.ErrMissingConfig),
			"Session", "SaveDataset", "store check")
	}

	rows, err := ds.Collect()
	if err != nil {
		return err
	}
	err = s.store.Append(ctx, location, rows)
	s.observeStore("append", err)
	return err
}

// OpenStore reads the store at location back as a single-partition dataset
func (s *Session) OpenStore(ctx context.Context, location string) (*Dataset, error) {
	if s.store == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: session has no store backend", errors.ErrMissingConfig),
			"Session", "OpenStore", "store check")
	}

	stored, rows, err := s.store.Open(ctx, location)
	s.observeStore("open", err)
	if err != nil {
		return nil, err
	}
	return &Dataset{session: s, schema: stored, partitions: [][]row.Row{rows}}, nil
}

func (s *Session) observeStore(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(op, status).Inc()
}

// Close releases session resources. Safe to call on a session without a
// store backend.
func (s *Session) Close() {
	s.catalog.Clear()
	s.schemas.Clear()
	if s.nats != nil {
		s.nats.Close()
	}
}
