package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

// LocalBucket stores objects as files below a directory.
type LocalBucket struct {
	dir string
}

// NewLocalOpener returns an Opener for a directory bucket rooted at dir.
func NewLocalOpener(dir string) Opener {
	return func(_ context.Context) (Bucket, error) {
		if dir == "" {
			return nil, domain.Errorf(domain.ErrAuth, opOpen, "local storage directory not configured")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.NewError(domain.ErrAuth, opOpen, err)
		}
		return &LocalBucket{dir: dir}, nil
	}
}

// Path returns the filesystem location of key.
func (b *LocalBucket) Path(key string) string {
	return filepath.Join(b.dir, filepath.FromSlash(key))
}

// Put creates the file for key. An existing file is never replaced.
func (b *LocalBucket) Put(ctx context.Context, key string, body []byte, _ string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := b.Path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return domain.NewError(domain.ErrStorageWrite, opUpload, err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.NewError(domain.ErrStorageWrite, opUpload, fmt.Errorf("%s: %w", key, domain.ErrObjectExists))
		}
		return domain.NewError(domain.ErrStorageWrite, opUpload, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
			if !domain.IsClassified(err) {
				err = domain.NewError(domain.ErrStorageWrite, opUpload, err)
			}
		}
	}()

	_, err = f.Write(body)
	return err
}

// Close is a no-op.
func (b *LocalBucket) Close() error { return nil }
