package domain

const opReshape = "reshape forecast"

// Reshape flattens a forecast into one row per hourly timestamp. Latitude and
// longitude are broadcast to every row; hourly.time[i] and
// hourly.temperature_2m[i] become row i.
//
// It fails with ErrMissingField when any expected field is absent and with
// ErrShapeMismatch when the two hourly series differ in length. No partial
// table is returned on failure.
func Reshape(resp ForecastResponse) (ForecastTable, error) {
	switch {
	case resp.Latitude == nil:
		return ForecastTable{}, Errorf(ErrMissingField, opReshape, "latitude")
	case resp.Longitude == nil:
		return ForecastTable{}, Errorf(ErrMissingField, opReshape, "longitude")
	case resp.Hourly == nil:
		return ForecastTable{}, Errorf(ErrMissingField, opReshape, "hourly")
	case resp.Hourly.Time == nil:
		return ForecastTable{}, Errorf(ErrMissingField, opReshape, "hourly.time")
	case resp.Hourly.Temperature2m == nil:
		return ForecastTable{}, Errorf(ErrMissingField, opReshape, "hourly.temperature_2m")
	}

	times, temps := resp.Hourly.Time, resp.Hourly.Temperature2m
	if len(times) != len(temps) {
		return ForecastTable{}, Errorf(ErrShapeMismatch, opReshape,
			"hourly.time has %d entries, hourly.temperature_2m has %d", len(times), len(temps))
	}

	lat, lon := *resp.Latitude, *resp.Longitude
	rows := make([]ForecastRow, len(times))
	for i := range times {
		rows[i] = ForecastRow{
			Latitude:    lat,
			Longitude:   lon,
			Time:        times[i],
			Temperature: copyFloat(temps[i]),
		}
	}
	return ForecastTable{Rows: rows}, nil
}

// copyFloat detaches a row from the response so later changes to either side
// are not shared.
func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
