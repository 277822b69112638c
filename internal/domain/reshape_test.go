package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{"latitude": -21.22, "longitude": -44.99, "hourly": {"time": ["2024-01-01T00:00","2024-01-01T01:00"], "temperature_2m": [22.5, 21.8]}}`

func decode(t *testing.T, payload string) ForecastResponse {
	t.Helper()
	var resp ForecastResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	return resp
}

func ptr(v float64) *float64 { return &v }

func TestReshape_SamplePayload(t *testing.T) {
	table, err := Reshape(decode(t, samplePayload))
	require.NoError(t, err)

	want := []ForecastRow{
		{Latitude: -21.22, Longitude: -44.99, Time: "2024-01-01T00:00", Temperature: ptr(22.5)},
		{Latitude: -21.22, Longitude: -44.99, Time: "2024-01-01T01:00", Temperature: ptr(21.8)},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReshape_RowsAlignWithSource(t *testing.T) {
	times := []string{"2024-03-01T00:00", "2024-03-01T01:00", "2024-03-01T02:00", "2024-03-01T03:00", "2024-03-01T04:00"}
	temps := []*float64{ptr(18.1), ptr(17.4), nil, ptr(16.0), ptr(15.2)}
	resp := ForecastResponse{
		Latitude:  ptr(52.52),
		Longitude: ptr(13.41),
		Hourly:    &Hourly{Time: times, Temperature2m: temps},
	}

	table, err := Reshape(resp)
	require.NoError(t, err)
	require.Equal(t, len(times), table.Len())

	for i, row := range table.Rows {
		assert.Equal(t, times[i], row.Time, "time at %d", i)
		assert.Equal(t, temps[i], row.Temperature, "temperature at %d", i)
		assert.Equal(t, 52.52, row.Latitude)
		assert.Equal(t, 13.41, row.Longitude)
	}
	assert.Nil(t, table.Rows[2].Temperature, "null readings stay null")
}

func TestReshape_NullTemperatureFromJSON(t *testing.T) {
	resp := decode(t, `{"latitude":1,"longitude":2,"hourly":{"time":["a","b"],"temperature_2m":[null,3.5]}}`)

	table, err := Reshape(resp)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Nil(t, table.Rows[0].Temperature)
	require.NotNil(t, table.Rows[1].Temperature)
	assert.Equal(t, 3.5, *table.Rows[1].Temperature)
}

func TestReshape_EmptySeries(t *testing.T) {
	resp := decode(t, `{"latitude":1,"longitude":2,"hourly":{"time":[],"temperature_2m":[]}}`)

	table, err := Reshape(resp)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestReshape_ShapeMismatch(t *testing.T) {
	resp := decode(t, `{"latitude":-21.22,"longitude":-44.99,"hourly":{"time":["2024-01-01T00:00","2024-01-01T01:00"],"temperature_2m":[22.5]}}`)

	table, err := Reshape(resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Nil(t, table.Rows, "no partial table")
	assert.Contains(t, err.Error(), "2 entries")
}

func TestReshape_MissingFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
	}{
		{"latitude", `{"longitude":2,"hourly":{"time":[],"temperature_2m":[]}}`, "latitude"},
		{"longitude", `{"latitude":1,"hourly":{"time":[],"temperature_2m":[]}}`, "longitude"},
		{"hourly", `{"latitude":1,"longitude":2}`, "hourly"},
		{"hourly.time", `{"latitude":1,"longitude":2,"hourly":{"temperature_2m":[1]}}`, "hourly.time"},
		{"hourly.temperature_2m", `{"latitude":1,"longitude":2,"hourly":{"time":["a"]}}`, "hourly.temperature_2m"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := Reshape(decode(t, tc.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.False(t, errors.Is(err, ErrShapeMismatch))
			assert.Contains(t, err.Error(), tc.field)
			assert.Nil(t, table.Rows)
		})
	}
}

func TestReshape_Deterministic(t *testing.T) {
	resp := decode(t, samplePayload)

	first, err := Reshape(resp)
	require.NoError(t, err)
	second, err := Reshape(resp)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reshape not deterministic (-first +second):\n%s", diff)
	}
}

func TestReshape_DoesNotAliasInput(t *testing.T) {
	resp := decode(t, samplePayload)

	table, err := Reshape(resp)
	require.NoError(t, err)

	*resp.Hourly.Temperature2m[0] = -99
	resp.Hourly.Time[0] = "mutated"

	assert.Equal(t, 22.5, *table.Rows[0].Temperature)
	assert.Equal(t, "2024-01-01T00:00", table.Rows[0].Time)
}
