// Package parquet encodes forecast tables as Parquet files.
package parquet

import (
	"bytes"
	"fmt"
	"strings"

	pq "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

// ContentType is the media type used when uploading encoded objects.
const ContentType = "application/vnd.apache.parquet"

const (
	opEncode = "encode parquet"
	opDecode = "decode parquet"
)

// record is the on-disk row layout. Column names follow domain.ForecastRow,
// so the API's temperature_2m series is stored as "temperature". The column
// is OPTIONAL so that null forecast values survive the round trip.
type record struct {
	Latitude    float64  `parquet:"name=latitude, type=DOUBLE"`
	Longitude   float64  `parquet:"name=longitude, type=DOUBLE"`
	Time        string   `parquet:"name=time, type=BYTE_ARRAY, convertedtype=UTF8"`
	Temperature *float64 `parquet:"name=temperature, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Codec serializes forecast tables with a fixed compression codec.
type Codec struct {
	compression pq.CompressionCodec
}

// NewCodec returns a codec for the named compression (SNAPPY, GZIP, or NONE/UNCOMPRESSED).
func NewCodec(compression string) (*Codec, error) {
	switch strings.ToUpper(compression) {
	case "", "SNAPPY":
		return &Codec{compression: pq.CompressionCodec_SNAPPY}, nil
	case "GZIP":
		return &Codec{compression: pq.CompressionCodec_GZIP}, nil
	case "NONE", "UNCOMPRESSED":
		return &Codec{compression: pq.CompressionCodec_UNCOMPRESSED}, nil
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q", compression)
	}
}

// Encode writes the table as a single Parquet file and returns its bytes.
func (c *Codec) Encode(table domain.ForecastTable) ([]byte, error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(record), 1)
	if err != nil {
		return nil, domain.NewError(domain.ErrSerialization, opEncode, fmt.Errorf("create writer: %w", err))
	}
	pw.CompressionType = c.compression

	for i, row := range table.Rows {
		rec := record{
			Latitude:    row.Latitude,
			Longitude:   row.Longitude,
			Time:        row.Time,
			Temperature: row.Temperature,
		}
		if err := pw.Write(rec); err != nil {
			return nil, domain.NewError(domain.ErrSerialization, opEncode, fmt.Errorf("write row %d: %w", i, err))
		}
	}

	if err := writeStop(pw); err != nil {
		return nil, domain.NewError(domain.ErrSerialization, opEncode, fmt.Errorf("finish file: %w", err))
	}
	return buf.Bytes(), nil
}

// writeStop flushes the footer. The writer panics on some internal
// failures, so those are recovered into errors.
func writeStop(pw *writer.ParquetWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	return pw.WriteStop()
}

// Decode reads a Parquet file produced by Encode back into a table.
func Decode(data []byte) (table domain.ForecastTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = domain.ForecastTable{}
			err = domain.Errorf(domain.ErrSerialization, opDecode, "corrupt file: %v", r)
		}
	}()

	pr, err := reader.NewParquetReader(buffer.NewBufferFileFromBytes(data), new(record), 1)
	if err != nil {
		return domain.ForecastTable{}, domain.NewError(domain.ErrSerialization, opDecode, fmt.Errorf("open reader: %w", err))
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	recs := make([]record, n)
	if n > 0 {
		if err := pr.Read(&recs); err != nil {
			return domain.ForecastTable{}, domain.NewError(domain.ErrSerialization, opDecode, fmt.Errorf("read rows: %w", err))
		}
	}

	table = domain.ForecastTable{Rows: make([]domain.ForecastRow, 0, len(recs))}
	for _, rec := range recs {
		table.Rows = append(table.Rows, domain.ForecastRow{
			Latitude:    rec.Latitude,
			Longitude:   rec.Longitude,
			Time:        rec.Time,
			Temperature: rec.Temperature,
		})
	}
	return table, nil
}
