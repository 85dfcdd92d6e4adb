package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the archive sink for organized zip bundles.
type Storage interface {
	// Store writes a bundle under the given key.
	Store(ctx context.Context, reader io.Reader, size int64, key string) error
	// Get streams a previously stored bundle.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes a bundle.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes bundles last modified before the threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}
