// Package storage persists encoded forecast tables to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
	"github.com/couchcryptid/meteo-etl-service/internal/observability"
)

const (
	opOpen   = "open storage session"
	opEncode = "encode table"
	opUpload = "upload object"
)

// Bucket is an authenticated session against one storage container. Put must
// refuse to overwrite an existing key.
type Bucket interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Close() error
}

// Opener establishes a new Bucket session. It is called once per Load.
type Opener func(ctx context.Context) (Bucket, error)

// Encoder serializes a table to the stored file format.
type Encoder interface {
	Encode(table domain.ForecastTable) ([]byte, error)
}

// Persister implements pipeline.Loader.
type Persister struct {
	keys          *domain.KeyBuilder
	open          Opener
	encoder       Encoder
	contentType   string
	uploadTimeout time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewPersister wires a key builder, a session opener, and an encoder into a
// Loader. uploadTimeout bounds each upload.
func NewPersister(keys *domain.KeyBuilder, open Opener, encoder Encoder, contentType string,
	uploadTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Persister {
	return &Persister{
		keys:          keys,
		open:          open,
		encoder:       encoder,
		contentType:   contentType,
		uploadTimeout: uploadTimeout,
		logger:        logger,
		metrics:       metrics,
	}
}

// Load writes table as one object under a freshly computed key and returns
// that key. On error no object has been written.
func (p *Persister) Load(ctx context.Context, table domain.ForecastTable) (domain.StorageKey, error) {
	key := p.keys.Next()

	bucket, err := p.open(ctx)
	if err != nil {
		return domain.StorageKey{}, classify(err, domain.ErrAuth, opOpen)
	}
	defer func() {
		if cerr := bucket.Close(); cerr != nil {
			p.logger.Warn("closing storage session", "error", cerr)
		}
	}()

	body, err := p.encoder.Encode(table)
	if err != nil {
		return domain.StorageKey{}, classify(err, domain.ErrSerialization, opEncode)
	}

	uctx, cancel := context.WithTimeout(ctx, p.uploadTimeout)
	defer cancel()

	if err := bucket.Put(uctx, key.Path(), body, p.contentType); err != nil {
		if errors.Is(uctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrObjectExists) {
			return domain.StorageKey{}, domain.NewError(domain.ErrTimeout, opUpload,
				fmt.Errorf("%s after %s: %w", key.Path(), p.uploadTimeout, err))
		}
		return domain.StorageKey{}, classify(err, domain.ErrStorageWrite, opUpload)
	}

	p.metrics.ObjectBytes.Observe(float64(len(body)))
	p.logger.Info("object written", "uri", key.URI(), "rows", table.Len(), "bytes", len(body))
	return key, nil
}

// classify leaves already classified errors untouched and files everything
// else under fallback.
func classify(err error, fallback error, op string) error {
	if domain.IsClassified(err) {
		return err
	}
	return domain.NewError(fallback, op, err)
}
