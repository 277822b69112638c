// Package domain models Open-Meteo hourly temperature forecasts and the rules
// for turning them into partitioned Parquet objects.
//
// # Data Source
//
// Forecasts come from the Open-Meteo forecast endpoint queried with a fixed
// latitude, longitude and hourly=temperature_2m:
//
//	{
//	  "latitude": -21.22,
//	  "longitude": -44.99,
//	  "hourly": {
//	    "time":           ["2024-01-01T00:00", "2024-01-01T01:00"],
//	    "temperature_2m": [22.5, 21.8]
//	  }
//	}
//
// The two hourly arrays are index-aligned: time[i] is the timestamp of
// temperature_2m[i]. Timestamps are ISO-8601 local times without seconds and
// are kept verbatim. Missing readings appear as null.
//
// # Reshape
//
// [Reshape] explodes the paired arrays into one [ForecastRow] per index,
// broadcasting latitude and longitude to every row. Array order is row order.
//
// # Storage Keys
//
// Each run writes exactly one object. Its [StorageKey] is taken from the wall
// clock at load time:
//
//	s3://dee-tutorial/open-meteo/2024/01/01/15:04:05-1a2b3c4d.parquet
//
// The trailing suffix is random and closes the same-second collision window
// between overlapping runs. Storage backends additionally refuse to replace an
// object that already exists, so a collision surfaces as [ErrStorageWrite]
// wrapping [ErrObjectExists] instead of a silent overwrite.
//
// # Errors
//
// Stage failures are [*Error] values classified under one of the sentinel
// kinds ([ErrNetwork], [ErrParse], [ErrShapeMismatch], [ErrMissingField],
// [ErrAuth], [ErrSerialization], [ErrStorageWrite], [ErrTimeout]).
package domain
