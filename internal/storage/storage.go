// Package storage wraps S3-compatible object stores behind a small interface
// used for document bytes and signed download links.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"partdocs/internal/config"
)

const keyPrefix = "documents/"

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 if unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// Storage is the object store gateway. Implementations are safe for concurrent use.
type Storage interface {
	// Put uploads r under key, silently replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a credential-free GET URL valid for expiry. The object is not checked for existence.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DocumentKey derives the object key for a part number's file.
func DocumentKey(partNumber, fileName string) string {
	return keyPrefix + partNumber + "/" + fileName
}

// New builds the configured driver and makes sure its bucket is usable.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.StorageDriverMinIO:
		ms, err := NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return ms, nil
	case config.StorageDriverS3:
		s, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func tracedTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}
