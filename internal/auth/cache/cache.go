package cache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache: miss")

// Cache is a string key-value store with per-key TTL. It holds the
// refresh-token bookkeeping (rt_<userId> and its revocation entries).
type Cache interface {
	// Get returns ErrMiss for absent or expired keys.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A ttl <= 0 stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by caches that need explicit removal of expired
// entries. Redis expires keys itself and does not implement it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}
