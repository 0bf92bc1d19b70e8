package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

func codecSchema() schema.Schema {
	return schema.Schema{
		{Name: "age", DataType: types.Integer, Nullable: false},
		{Name: "name", DataType: types.String, Nullable: true},
		{Name: "score", DataType: types.Double, Nullable: false},
		{Name: "active", DataType: types.Boolean, Nullable: false},
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	s := codecSchema()
	rows := []row.Row{
		{int32(30), "Ann", 1.5, true},
		{int32(5), nil, 0.25, false},
	}

	data, err := EncodeSegment(rows)
	require.NoError(t, err)

	decoded, err := DecodeSegment(data, s)
	require.NoError(t, err)
	assert.Equal(t, rows, decoded, "runtime kinds restored from JSON numbers")

	for _, r := range decoded {
		assert.NoError(t, r.Conforms(s))
	}
}

func TestDecodeSegment_Corruption(t *testing.T) {
	s := codecSchema()

	_, err := DecodeSegment([]byte("not json"), s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreCorrupted))

	// Wrong row width.
	short, err := EncodeSegment([]row.Row{{int32(1)}})
	require.NoError(t, err)
	_, err = DecodeSegment(short, s)
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreCorrupted))

	// Null in a non-nullable slot.
	nulled, err := EncodeSegment([]row.Row{{nil, "x", 1.0, true}})
	require.NoError(t, err)
	_, err = DecodeSegment(nulled, s)
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreCorrupted))

	// Kind mismatch against the schema.
	mismatched, err := EncodeSegment([]row.Row{{"thirty", "x", 1.0, true}})
	require.NoError(t, err)
	_, err = DecodeSegment(mismatched, s)
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreCorrupted))
}

func TestDecodeSegment_OutOfRangeNumbers(t *testing.T) {
	tests := []struct {
		name    string
		field   schema.Field
		payload string
	}{
		{"byte overflow", schema.Field{Name: "v", DataType: types.Byte}, `[[300]]`},
		{"byte underflow", schema.Field{Name: "v", DataType: types.Byte}, `[[-200]]`},
		{"short overflow", schema.Field{Name: "v", DataType: types.Short}, `[[70000]]`},
		{"integer overflow", schema.Field{Name: "v", DataType: types.Integer}, `[[3000000000]]`},
		{"long overflow", schema.Field{Name: "v", DataType: types.Long}, `[[1e300]]`},
		{"float overflow", schema.Field{Name: "v", DataType: types.Float}, `[[1e200]]`},
		{"fractional byte", schema.Field{Name: "v", DataType: types.Byte}, `[[1.5]]`},
		{"fractional long", schema.Field{Name: "v", DataType: types.Long}, `[[2.25]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSegment([]byte(tt.payload), schema.Schema{tt.field})
			require.Error(t, err)
			assert.True(t, errors.Is(err, pkgerrors.ErrStoreCorrupted),
				"a value outside the field's range must surface as corruption, not truncate")
		})
	}
}

func TestDecodeSegment_RangeBoundaries(t *testing.T) {
	s := schema.Schema{
		{Name: "b", DataType: types.Byte},
		{Name: "s", DataType: types.Short},
		{Name: "i", DataType: types.Integer},
	}

	decoded, err := DecodeSegment([]byte(`[[-128, 32767, -2147483648]]`), s)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, row.Row{int8(-128), int16(32767), int32(-2147483648)}, decoded[0])
}

func TestSchemaRoundTrip(t *testing.T) {
	s := codecSchema()

	data, err := EncodeSchema(s, "test store")
	require.NoError(t, err)

	decoded, err := DecodeSchema(data)
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))

	_, err = DecodeSchema([]byte("{"))
	assert.True(t, errors.Is(err, pkgerrors.ErrStoreCorrupted))
}
