package metadata

import (
	"context"
)

// Repository is a small key/value table owned by the sync engine. It holds
// the pull watermark, per-collection diagnostic markers, and the lock lease.
// Domain modules never touch it.
type Repository interface {
	// Get returns the raw value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetInt64 reads a decimal-encoded integer value; def when absent.
	GetInt64(ctx context.Context, key string, def int64) (int64, error)

	// SetInt64 writes an integer value in decimal encoding.
	SetInt64(ctx context.Context, key string, value int64) error

	// List returns every key/value pair, for diagnostics.
	List(ctx context.Context) (map[string][]byte, error)
}
