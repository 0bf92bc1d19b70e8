package catalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

func table(names ...string) Table {
	rows := make([]row.Row, len(names))
	for i, n := range names {
		rows[i] = row.Row{n}
	}
	return Table{
		Schema:     schema.Schema{{Name: "name", DataType: types.String, Nullable: true}},
		Partitions: [][]row.Row{rows},
	}
}

func TestCatalog_RegisterLookup(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("people", table("ann")))

	got, err := c.Lookup("people")
	require.NoError(t, err)
	assert.Equal(t, []row.Row{{"ann"}}, got.Rows())
}

func TestCatalog_LookupMissing(t *testing.T) {
	c := New()

	_, err := c.Lookup("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrTableNotFound))
}

func TestCatalog_LastWriteWins(t *testing.T) {
	c := New()

	require.NoError(t, c.Register("people", table("ann", "bo")))
	require.NoError(t, c.Register("people", table("cy")))

	got, err := c.Lookup("people")
	require.NoError(t, err)
	assert.Equal(t, []row.Row{{"cy"}}, got.Rows(), "second binding replaces the first entirely")
	assert.Equal(t, 1, c.Size())
}

func TestCatalog_EmptyNameRejected(t *testing.T) {
	c := New()
	assert.Error(t, c.Register("", table()))
}

func TestCatalog_DropAndClear(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("a", table()))
	require.NoError(t, c.Register("b", table()))

	assert.True(t, c.Drop("a"))
	assert.False(t, c.Drop("a"))
	assert.Equal(t, []string{"b"}, c.Names())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestTable_RowsFlattensPartitions(t *testing.T) {
	tbl := Table{
		Partitions: [][]row.Row{
			{{int32(1)}, {int32(2)}},
			{{int32(3)}},
		},
	}
	assert.Equal(t, []row.Row{{int32(1)}, {int32(2)}, {int32(3)}}, tbl.Rows())
}

func TestCatalog_ConcurrentRegistration(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = c.Register("people", table("x"))
			_, _ = c.Lookup("people")
		}(i)
	}
	wg.Wait()

	// Whatever the interleaving, the binding is intact, never corrupted.
	got, err := c.Lookup("people")
	require.NoError(t, err)
	assert.Len(t, got.Rows(), 1)
}
