package domain

import "time"

// ForecastResponse is the Open-Meteo forecast document as fetched. Pointer and
// nil-slice fields distinguish an absent field from an empty one.
type ForecastResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Hourly    *Hourly  `json:"hourly"`
}

// Hourly holds the index-aligned hourly series. Open-Meteo reports missing
// readings as null, which decode to nil entries in Temperature2m.
type Hourly struct {
	Time          []string   `json:"time"`
	Temperature2m []*float64 `json:"temperature_2m"`
}

// ForecastRow is one exploded hourly reading.
type ForecastRow struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature"`
}

// ForecastTable is the ordered row set produced by Reshape. Row order matches
// the order of the source arrays.
type ForecastTable struct {
	Rows []ForecastRow
}

// Len returns the number of rows.
func (t ForecastTable) Len() int { return len(t.Rows) }

// RunReport describes a completed run.
type RunReport struct {
	ID         string     `json:"run_id"`
	Key        StorageKey `json:"-"`
	URI        string     `json:"uri"`
	Rows       int        `json:"rows"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}
