package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLockNotAcquired is returned when a lock is held by someone else
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over
	ErrLockNotHeld = errors.New("lock not held")
)

// Lock is a held lock
type Lock struct {
	store Store
	key   string
	value []byte
}

// Locker hands out expiring locks stored in a Store
type Locker struct {
	store     Store
	keyPrefix string
}

// NewLocker creates a Locker
func NewLocker(store Store, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &Locker{store: store, keyPrefix: keyPrefix}
}

// Acquire takes the lock on key for ttl
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	value := []byte(uuid.New().String())

	ok, err := l.store.SetNX(ctx, lockKey, value, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &Lock{store: l.store, key: lockKey, value: value}, nil
}

// Release frees the lock if it is still held
func (lock *Lock) Release(ctx context.Context) error {
	ok, err := lock.store.DelIfEquals(ctx, lock.key, lock.value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock runs fn while holding the lock on key
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	lock, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer lock.Release(ctx)

	return fn()
}
