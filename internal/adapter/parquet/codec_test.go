package parquet

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func sampleTable() domain.ForecastTable {
	return domain.ForecastTable{Rows: []domain.ForecastRow{
		{Latitude: -21.22, Longitude: -44.99, Time: "2024-01-01T00:00", Temperature: ptr(22.5)},
		{Latitude: -21.22, Longitude: -44.99, Time: "2024-01-01T01:00", Temperature: nil},
		{Latitude: -21.22, Longitude: -44.99, Time: "2024-01-01T02:00", Temperature: ptr(21.8)},
	}}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, compression := range []string{"SNAPPY", "GZIP", "NONE", "UNCOMPRESSED"} {
		t.Run(compression, func(t *testing.T) {
			codec, err := NewCodec(compression)
			require.NoError(t, err)

			data, err := codec.Encode(sampleTable())
			require.NoError(t, err)
			require.NotEmpty(t, data)
			assert.Equal(t, "PAR1", string(data[:4]))

			got, err := Decode(data)
			require.NoError(t, err)
			if diff := cmp.Diff(sampleTable(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodec_ColumnNamesFollowRowModel(t *testing.T) {
	codec, err := NewCodec("NONE")
	require.NoError(t, err)

	data, err := codec.Encode(sampleTable())
	require.NoError(t, err)

	for _, col := range []string{"latitude", "longitude", "time", "temperature"} {
		assert.True(t, bytes.Contains(data, []byte(col)), "missing column %q", col)
	}
	assert.False(t, bytes.Contains(data, []byte("temperature_2m")))
}

func TestCodec_EmptyTable(t *testing.T) {
	codec, err := NewCodec("SNAPPY")
	require.NoError(t, err)

	data, err := codec.Encode(domain.ForecastTable{})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestNewCodec_Unsupported(t *testing.T) {
	_, err := NewCodec("LZ4_RAW_FANCY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LZ4_RAW_FANCY")
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("definitely not parquet"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSerialization)
}
