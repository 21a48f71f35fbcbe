package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Typed stores JSON encoded values of T under a key prefix
type Typed[T any] struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewTyped creates a Typed cache. A zero ttl keeps entries until deleted.
func NewTyped[T any](store Store, prefix string, ttl time.Duration) *Typed[T] {
	return &Typed[T]{store: store, prefix: prefix, ttl: ttl}
}

// Get returns the value of key, or ErrNotFound
func (c *Typed[T]) Get(ctx context.Context, key string) (*T, error) {
	raw, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.Wrapf(err, "failed to decode cached %s", c.prefix+key)
	}
	return &value, nil
}

// Set stores value under key
func (c *Typed[T]) Set(ctx context.Context, key string, value *T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", c.prefix+key)
	}
	return c.store.Set(ctx, c.prefix+key, raw, c.ttl)
}

// Delete removes key
func (c *Typed[T]) Delete(ctx context.Context, key string) error {
	return c.store.Del(ctx, c.prefix+key)
}
