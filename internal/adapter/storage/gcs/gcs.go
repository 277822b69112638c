// Package gcs is the Google Cloud Storage backend.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	storageport "github.com/couchcryptid/meteo-etl-service/internal/adapter/storage"
	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

const (
	opClient = "open gcs client"
	opPut    = "put gcs object"
)

// Config holds the connection settings for one bucket.
type Config struct {
	Bucket          string
	CredentialsFile string
	Endpoint        string // optional, for emulators; disables authentication
}

// Bucket is a GCS client bound to one bucket.
type Bucket struct {
	name   string
	client *storage.Client
}

// NewOpener returns a storage.Opener that creates a client per call.
func NewOpener(cfg Config) storageport.Opener {
	return func(ctx context.Context) (storageport.Bucket, error) {
		return Open(ctx, cfg)
	}
}

// Open creates a client from a service-account file, or an unauthenticated
// client when an emulator endpoint is configured.
func Open(ctx context.Context, cfg Config) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, domain.Errorf(domain.ErrAuth, opClient, "bucket is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, domain.Errorf(domain.ErrAuth, opClient, "credentials file is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, domain.NewError(domain.ErrAuth, opClient, err)
	}
	return &Bucket{name: cfg.Bucket, client: client}, nil
}

// Put writes body under key with a does-not-exist precondition. Writes are
// not retried.
func (b *Bucket) Put(ctx context.Context, key string, body []byte, contentType string) error {
	obj := b.client.Bucket(b.name).Object(key).
		If(storage.Conditions{DoesNotExist: true}).
		Retryer(storage.WithPolicy(storage.RetryNever))

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return classify(err, b.name, key)
	}
	if err := w.Close(); err != nil {
		return classify(err, b.name, key)
	}
	return nil
}

// Close releases the client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

func classify(err error, bucket, key string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.ErrTimeout, opPut, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusPreconditionFailed:
			return domain.NewError(domain.ErrStorageWrite, opPut,
				fmt.Errorf("gs://%s/%s: %w", bucket, key, domain.ErrObjectExists))
		case http.StatusUnauthorized:
			return domain.NewError(domain.ErrAuth, opPut, err)
		}
	}
	return domain.NewError(domain.ErrStorageWrite, opPut, err)
}
