package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"go.etcd.io/bbolt"
)

var bucketCache = []byte("cache")

// Cache is a single-node cache backed by a bbolt file. Each value is stored
// behind an 8-byte big-endian expiry (unix nanoseconds, 0 = never).
type Cache struct {
	db *bbolt.DB

	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

func New(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}

	return &Cache{db: db, Now: time.Now}, nil
}

func (c *Cache) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketCache).Get([]byte(key))
		if raw == nil {
			return cache.ErrMiss
		}
		v, ok := decode(raw, c.now())
		if !ok {
			return cache.ErrMiss
		}
		value = v
		return nil
	})
	return value, err
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = c.now().Add(ttl).UnixNano()
	}

	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, uint64(exp)) // #nosec G115 - exp is never negative
	copy(buf[8:], value)

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), buf)
	})
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Delete([]byte(key))
	})
}

// PurgeExpired removes every expired entry and reports how many went.
func (c *Cache) PurgeExpired(ctx context.Context) (int, error) {
	now := c.now()
	purged := 0

	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCache)

		// Deleting through the cursor while iterating skips entries, so
		// collect first.
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if _, ok := decode(v, now); !ok {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(expired)
		return nil
	})
	return purged, err
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketCache) == nil {
			return fmt.Errorf("bolt: bucket %q missing", bucketCache)
		}
		return nil
	})
}

func (c *Cache) Close() error { return c.db.Close() }

func decode(raw []byte, now time.Time) (string, bool) {
	if len(raw) < 8 {
		return "", false
	}
	exp := int64(binary.BigEndian.Uint64(raw[:8])) // #nosec G115
	if exp != 0 && now.UnixNano() >= exp {
		return "", false
	}
	return string(raw[8:]), true
}
