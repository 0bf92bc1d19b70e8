package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falaki/spark/errors"
	"github.com/falaki/spark/row"
	"github.com/falaki/spark/schema"
	"github.com/falaki/spark/types"
)

func TestJSONScalarInference(t *testing.T) {
	records := [][]byte{
		[]byte(`{"name":"Ann","age":30,"score":91.5,"active":true}`),
		[]byte(`{"name":"Bob","age":41,"score":77.25,"active":false}`),
	}

	sch, rows, err := JSON(records, Options{})
	require.NoError(t, err)

	expected := schema.Schema{
		{Name: "active", DataType: types.Boolean, Nullable: true},
		{Name: "age", DataType: types.Long, Nullable: true},
		{Name: "name", DataType: types.String, Nullable: true},
		{Name: "score", DataType: types.Double, Nullable: true},
	}
	assert.Equal(t, expected, sch)

	require.Len(t, rows, 2)
	assert.Equal(t, row.Row{true, int64(30), "Ann", 91.5}, rows[0])
	assert.Equal(t, row.Row{false, int64(41), "Bob", 77.25}, rows[1])
}

func TestJSONKeyOrderFirstAppearance(t *testing.T) {
	records := [][]byte{
		[]byte(`{"b":1}`),
		[]byte(`{"a":2}`),
	}

	sch, _, err := JSON(records, Options{})
	require.NoError(t, err)

	require.Len(t, sch, 2)
	assert.Equal(t, "b", sch[0].Name)
	assert.Equal(t, "a", sch[1].Name)
}

func TestJSONWidening(t *testing.T) {
	tests := []struct {
		name    string
		records []string
		want    types.CanonicalType
	}{
		{"long stays long", []string{`{"v":1}`, `{"v":2}`}, types.Long},
		{"long widens to double", []string{`{"v":1}`, `{"v":2.5}`}, types.Double},
		{"double widens to string", []string{`{"v":2.5}`, `{"v":"x"}`}, types.String},
		{"boolean conflicts to string", []string{`{"v":true}`, `{"v":1}`}, types.String},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([][]byte, len(tt.records))
			for i, r := range tt.records {
				records[i] = []byte(r)
			}

			sch, rows, err := JSON(records, Options{})
			require.NoError(t, err)
			require.Len(t, sch, 1)
			assert.Equal(t, tt.want, sch[0].DataType)
			for _, r := range rows {
				assert.NoError(t, r.Conforms(sch))
			}
		})
	}
}

func TestJSONMissingKeysAreNull(t *testing.T) {
	records := [][]byte{
		[]byte(`{"name":"Ann","age":30}`),
		[]byte(`{"name":"Bob"}`),
		[]byte(`{"age":7,"name":null}`),
	}

	sch, rows, err := JSON(records, Options{})
	require.NoError(t, err)

	ageIdx := sch.FieldIndex("age")
	nameIdx := sch.FieldIndex("name")
	require.GreaterOrEqual(t, ageIdx, 0)
	require.GreaterOrEqual(t, nameIdx, 0)

	assert.Nil(t, rows[1][ageIdx])
	assert.Nil(t, rows[2][nameIdx])
	assert.Equal(t, int64(7), rows[2][ageIdx])
}

func TestJSONSampleRatio(t *testing.T) {
	// With a ratio covering only the first record, the second record's
	// extra key never enters the schema.
	records := [][]byte{
		[]byte(`{"a":1}`),
		[]byte(`{"a":2,"b":"late"}`),
	}

	sch, rows, err := JSON(records, Options{SampleRatio: 0.5})
	require.NoError(t, err)

	require.Len(t, sch, 1)
	assert.Equal(t, "a", sch[0].Name)
	assert.Equal(t, row.Row{int64(2)}, rows[1])
}

func TestJSONSchemaOverride(t *testing.T) {
	override := schema.Schema{
		{Name: "age", DataType: types.Long, Nullable: true},
	}
	records := [][]byte{
		[]byte(`{"age":30,"ignored":"x"}`),
	}

	sch, rows, err := JSON(records, Options{Schema: &override})
	require.NoError(t, err)
	assert.Equal(t, override, sch)
	assert.Equal(t, row.Row{int64(30)}, rows[0])
}

func TestJSONStringCoercion(t *testing.T) {
	// The first record pins v as Boolean, the second widens to String;
	// both values land as strings.
	records := [][]byte{
		[]byte(`{"v":true}`),
		[]byte(`{"v":1.5}`),
	}

	_, rows, err := JSON(records, Options{})
	require.NoError(t, err)
	assert.Equal(t, row.Row{"true"}, rows[0])
	assert.Equal(t, row.Row{"1.5"}, rows[1])
}

func TestJSONRejectsNonScalar(t *testing.T) {
	records := [][]byte{
		[]byte(`{"v":[1,2]}`),
	}

	_, _, err := JSON(records, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestJSONRejectsMalformedRecord(t *testing.T) {
	records := [][]byte{
		[]byte(`{"v":1}`),
		[]byte(`not json`),
	}

	_, _, err := JSON(records, Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorInvalid, errors.Classify(err))
}

func TestJSONRejectsBadSampleRatio(t *testing.T) {
	_, _, err := JSON(nil, Options{SampleRatio: 1.5})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}
