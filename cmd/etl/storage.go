package main

import (
	"context"

	"github.com/couchcryptid/meteo-etl-service/internal/adapter/storage"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/storage/gcs"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/storage/s3"
	"github.com/couchcryptid/meteo-etl-service/internal/config"
)

// newOpener selects the storage backend named in cfg.
func newOpener(cfg config.Storage) storage.Opener {
	switch cfg.Backend {
	case config.BackendGCS:
		return gcs.NewOpener(gcs.Config{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.CredentialsFile,
			Endpoint:        cfg.Endpoint,
		})
	case config.BackendLocal:
		return storage.NewLocalOpener(cfg.LocalDir)
	default:
		return s3.NewOpener(s3.Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	}
}

// preflight opens and closes one session so missing or malformed
// credentials fail at startup rather than on the first run.
func preflight(ctx context.Context, open storage.Opener) error {
	b, err := open(ctx)
	if err != nil {
		return err
	}
	return b.Close()
}
