// Package objectstore wraps a single logical bucket behind the three
// operations the pipeline needs: put, get, and time-limited read links.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Client is the object-store contract consumed by the pipeline and the
// ingestion path. Implementations are safe for concurrent use.
type Client interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
