// Package storage keeps file contents in an S3-compatible object store.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the object store used by the file service. Keys are
// slash-separated paths such as {user_id}/{file_id}/{filename}.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete succeeds when the key does not exist.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited GET link for key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
