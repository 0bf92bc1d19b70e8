package objectstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/falaki/spark/errors"
	"github.com/falaki/spark/natsclient"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/storage"
	"github.com/falaki/spark/types"
)

// Integration tests require a running NATS server with JetStream enabled.
// Set SPARK_TEST_NATS_URL to run them, e.g. nats://localhost:4222.
func integrationClient(t *testing.T) *natsclient.Client {
	t.Helper()

	url := os.Getenv("SPARK_TEST_NATS_URL")
	if url == "" {
		t.Skip("SPARK_TEST_NATS_URL not set; skipping object store integration test")
	}

	client, err := natsclient.Connect(url)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func integrationSchema() schema.Schema {
	return schema.Schema{
		{Name: "age", DataType: types.Integer, Nullable: false},
		{Name: "name", DataType: types.String, Nullable: true},
	}
}

func TestIntegration_CreateEmptyConflict(t *testing.T) {
	client := integrationClient(t)
	store, err := New(client)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	location := "spark_it_conflict"
	t.Cleanup(func() { _ = store.Delete(context.Background(), location) })

	_, err = store.CreateEmpty(ctx, location, integrationSchema(), false, storage.Options{})
	require.NoError(t, err)

	_, err = store.CreateEmpty(ctx, location, integrationSchema(), false, storage.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreExists))

	h, err := store.CreateEmpty(ctx, location, integrationSchema(), true, storage.Options{})
	require.NoError(t, err)
	assert.Equal(t, location, h.Location)
}

func TestIntegration_AppendOpenRoundTrip(t *testing.T) {
	client := integrationClient(t)
	store, err := New(client)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	location := "spark_it_roundtrip"
	t.Cleanup(func() { _ = store.Delete(context.Background(), location) })

	_, err = store.CreateEmpty(ctx, location, integrationSchema(), false, storage.Options{
		Description: "integration test store",
	})
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, location, []row.Row{{int32(30), "Ann"}}))
	require.NoError(t, store.Append(ctx, location, []row.Row{{int32(5), nil}}))

	sch, rows, err := store.Open(ctx, location)
	require.NoError(t, err)
	assert.True(t, sch.Equal(integrationSchema()))
	assert.Equal(t, []row.Row{{int32(30), "Ann"}, {int32(5), nil}}, rows)
}

func TestIntegration_OpenMissingStore(t *testing.T) {
	client := integrationClient(t)
	store, err := New(client)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err = store.Open(ctx, "spark_it_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreNotFound))
}
