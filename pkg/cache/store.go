// Package cache holds the key value stores behind search result caching,
// stored search summaries and import locks.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired
var ErrNotFound = errors.New("cache key not found")

// Store is a key value store with expiring keys
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX sets key only when it does not exist and reports whether it did
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfEquals deletes key only while it still holds value
	DelIfEquals(ctx context.Context, key string, value []byte) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
