package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = time.Hour

// JSONCache is a read-through cache storing JSON documents in Redis.
// Concurrent misses for one key share a single fill. Without Redis every Fetch fills.
// Invalidation goes through generation counters: callers fold Version into their keys
// and Bump it after a write, so a fill that raced the write lands under a dead key.
type JSONCache struct {
	rc    *redis.Client
	group singleflight.Group

	mu       sync.Mutex
	versions map[string]int64
}

// NewJSONCache wraps rc; rc may be nil.
func NewJSONCache(rc *redis.Client) *JSONCache {
	return &JSONCache{rc: rc, versions: map[string]int64{}}
}

// Fetch decodes the cached value for key into out, calling fill and caching its result on a miss.
func (c *JSONCache) Fetch(ctx context.Context, key string, ttl time.Duration, out any, fill func(context.Context) (any, error)) error {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if b, ok := c.getBytes(ctx, key); ok {
		if err := json.Unmarshal(b, out); err == nil {
			return nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		c.setBytes(ctx, key, b, ttl)
		return b, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}

// Version returns the generation counter stored at key, 0 when unset.
func (c *JSONCache) Version(ctx context.Context, key string) (int64, error) {
	if c.rc == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.versions[key], nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	v, err := c.rc.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// Bump advances the generation counter at key. Errors are logged only.
func (c *JSONCache) Bump(ctx context.Context, key string) {
	if c.rc == nil {
		c.mu.Lock()
		c.versions[key]++
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Incr(ctx, key).Err(); err != nil {
		Sugar.Warnf("cache version bump failed key=%s err=%v", key, err)
	}
}

func (c *JSONCache) getBytes(ctx context.Context, key string) ([]byte, bool) {
	if c.rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (c *JSONCache) setBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if c.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}
