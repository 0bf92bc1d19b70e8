package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falaki/spark/config"
	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/infer"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/storage"
	"github.com/falaki/spark/storage/memstore"
	"github.com/falaki/spark/types"
)

type person struct {
	name *string
	age  int32
}

func (p person) Name() *string    { return p.name }
func (p person) Age() int32       { return p.age }
func (p person) TypeName() string { return "person" }

func strPtr(s string) *string { return &s }

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := New(nil, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func personDataset(t *testing.T, s *Session) *Dataset {
	t.Helper()
	ds, err := s.CreateDataset(context.Background(), person{}, [][]any{
		{person{name: strPtr("Ann"), age: 30}},
		{person{name: nil, age: 5}},
	})
	require.NoError(t, err)
	return ds
}

func TestSession_CreateDataset(t *testing.T) {
	s := newSession(t)
	ds := personDataset(t, s)

	expected := schema.Schema{
		{Name: "age", DataType: types.Integer, Nullable: false},
		{Name: "name", DataType: types.String, Nullable: true},
	}
	assert.Equal(t, expected, ds.Schema())

	rows, err := ds.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, row.Row{int32(30), "Ann"}, rows[0])
	assert.Equal(t, row.Row{int32(5), nil}, rows[1])
}

func TestSession_SchemaCache(t *testing.T) {
	s := newSession(t)

	first, err := s.DeriveSchema(person{})
	require.NoError(t, err)
	second, err := s.DeriveSchema(person{})
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestSession_RegisterAndQuery(t *testing.T) {
	s := newSession(t)
	ds := personDataset(t, s)

	require.NoError(t, s.RegisterTable("people", ds))

	bound, err := s.SQL("SELECT * FROM people")
	require.NoError(t, err)
	assert.True(t, ds.Schema().Equal(bound.Schema()))

	n, err := bound.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSession_SQLLazyBinding(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.RegisterTable("people", personDataset(t, s)))

	bound, err := s.SQL("select * from people;")
	require.NoError(t, err)

	// Re-registering the name changes what the bound dataset collects.
	replacement, err := s.CreateDataset(context.Background(), person{}, [][]any{
		{person{name: strPtr("Cara"), age: 41}},
	})
	require.NoError(t, err)
	require.NoError(t, s.RegisterTable("people", replacement))

	rows, err := bound.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.Row{int32(41), "Cara"}, rows[0])

	// Dropping the table surfaces at collection time.
	s.DropTable("people")
	_, err = bound.Collect()
	assert.ErrorIs(t, err, errors.ErrTableNotFound)
}

func TestSession_SQLErrors(t *testing.T) {
	s := newSession(t)

	_, err := s.SQL("SELECT name FROM people")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorInvalid, errors.Classify(err))

	_, err = s.SQL("SELECT * FROM missing")
	assert.ErrorIs(t, err, errors.ErrTableNotFound)
}

func TestSession_DatasetFromJSON(t *testing.T) {
	s := newSession(t)

	ds, err := s.CreateDatasetFromJSON([][]byte{
		[]byte(`{"city":"Miami","pop":450000}`),
		[]byte(`{"city":"Reno"}`),
	}, infer.Options{})
	require.NoError(t, err)

	sch := ds.Schema()
	require.Len(t, sch, 2)
	assert.True(t, sch[0].Nullable)

	rows, err := ds.Collect()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Nil(t, rows[1][sch.FieldIndex("pop")])
}

func TestSession_DatasetFromDelimited(t *testing.T) {
	s := newSession(t)

	ds, err := s.CreateDatasetFromDelimited(
		strings.NewReader("city,pop\nMiami,450000\nReno,270000\n"),
		infer.Options{Header: true})
	require.NoError(t, err)

	require.NoError(t, s.RegisterTable("cities", ds))
	bound, err := s.SQL("SELECT * FROM cities")
	require.NoError(t, err)

	rows, err := bound.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, row.Row{"Miami", int64(450000)}, rows[0])
}

func TestSession_StoreRoundTrip(t *testing.T) {
	s := newSession(t, WithStore(memstore.New()))
	ctx := context.Background()

	handle, err := s.CreateEmptyStore(ctx, person{}, "people-store", false, storage.Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)

	require.NoError(t, s.SaveDataset(ctx, "people-store", personDataset(t, s)))

	reopened, err := s.OpenStore(ctx, "people-store")
	require.NoError(t, err)

	rows, err := reopened.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, row.Row{int32(30), "Ann"}, rows[0])
}

func TestSession_CreateEmptyStoreConflict(t *testing.T) {
	s := newSession(t, WithStore(memstore.New()))
	ctx := context.Background()

	_, err := s.CreateEmptyStore(ctx, person{}, "dup", false, storage.Options{})
	require.NoError(t, err)

	_, err = s.CreateEmptyStore(ctx, person{}, "dup", false, storage.Options{})
	assert.ErrorIs(t, err, errors.ErrStoreExists)

	_, err = s.CreateEmptyStore(ctx, person{}, "dup", true, storage.Options{})
	assert.NoError(t, err)
}

func TestSession_StoreRequiresBackend(t *testing.T) {
	s := newSession(t)

	_, err := s.CreateEmptyStore(context.Background(), person{}, "x", false, storage.Options{})
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	_, err = s.OpenStore(context.Background(), "x")
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestSession_RunsWithEmptyNATSConfig(t *testing.T) {
	cfg := config.Default()
	cfg.NATS = config.NATSConfig{}

	s, err := New(cfg, WithStore(memstore.New()))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.CreateEmptyStore(context.Background(), person{}, "local", false, storage.Options{})
	assert.NoError(t, err)
}

func TestSession_ObjectStoreRequiresURL(t *testing.T) {
	cfg := config.Default()
	cfg.NATS.URL = ""

	_, err := New(cfg, WithObjectStore())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestSession_Isolation(t *testing.T) {
	a := newSession(t)
	b := newSession(t)

	require.NoError(t, a.RegisterTable("people", personDataset(t, a)))

	_, err := b.SQL("SELECT * FROM people")
	assert.ErrorIs(t, err, errors.ErrTableNotFound)
}
