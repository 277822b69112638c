// Package s3 is the Amazon S3 storage backend.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/couchcryptid/meteo-etl-service/internal/adapter/storage"
	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

const (
	opSession = "open s3 session"
	opHead    = "check s3 object"
	opPut     = "put s3 object"
)

// Config holds the connection settings for one bucket. Credentials are
// static and must be supplied explicitly.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
}

// Bucket is an S3 session bound to one bucket.
type Bucket struct {
	name     string
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewOpener returns a storage.Opener that creates a fresh session per call.
func NewOpener(cfg Config) storage.Opener {
	return func(ctx context.Context) (storage.Bucket, error) {
		return Open(ctx, cfg)
	}
}

// Open validates cfg and builds a session. No request is sent.
func Open(_ context.Context, cfg Config) (*Bucket, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, domain.Errorf(domain.ErrAuth, opSession, "access key id and secret access key are required")
	}
	if cfg.Bucket == "" {
		return nil, domain.Errorf(domain.ErrAuth, opSession, "bucket is required")
	}

	awsCfg := &aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		MaxRetries:  aws.Int(0),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, domain.NewError(domain.ErrAuth, opSession, err)
	}

	client := s3.New(sess)
	return &Bucket{
		name:     cfg.Bucket,
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

// Put uploads body under key unless a HEAD finds an object already there.
// The check and the upload are separate requests, so two writers racing on
// the same key can both pass it.
func (b *Bucket) Put(ctx context.Context, key string, body []byte, contentType string) error {
	exists, err := b.exists(ctx, key)
	if err != nil {
		return classify(err, opHead)
	}
	if exists {
		return domain.NewError(domain.ErrStorageWrite, opPut, fmt.Errorf("s3://%s/%s: %w", b.name, key, domain.ErrObjectExists))
	}

	_, err = b.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return classify(err, opPut)
	}
	return nil
}

func (b *Bucket) exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	// A HEAD error has no body, so a 403 cannot tell bad credentials from a
	// missing s3:GetObject grant. The PUT that follows reports the real code.
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode() {
		case http.StatusNotFound, http.StatusForbidden:
			return false, nil
		}
	}
	return false, err
}

// Close is a no-op; S3 sessions hold no connections of their own.
func (b *Bucket) Close() error { return nil }

func classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.ErrTimeout, op, err)
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return domain.NewError(domain.ErrStorageWrite, op, err)
	}
	switch aerr.Code() {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "NoCredentialProviders":
		return domain.NewError(domain.ErrAuth, op, err)
	case request.CanceledErrorCode:
		if errors.Is(aerr.OrigErr(), context.DeadlineExceeded) {
			return domain.NewError(domain.ErrTimeout, op, err)
		}
	}
	return domain.NewError(domain.ErrStorageWrite, op, err)
}
