package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pricing:snapshot:"

// ProductKey is the cache key of a product snapshot.
func ProductKey(id string) string { return keyPrefix + "product:" + id }

// CampaignsKey is the cache key of the discount campaign list.
func CampaignsKey() string { return keyPrefix + "campaigns" }

// CategoriesKey is the cache key of the flat category list.
func CategoriesKey() string { return keyPrefix + "categories" }

// Cache wraps Redis helpers for JSON snapshots. A nil Cache or client is a no-op.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	observe func(kind string, hit bool)
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// WithObserver registers a callback told about every Remember lookup. kind is the
// snapshot kind taken from the key: product, campaigns or categories.
func (c *Cache) WithObserver(fn func(kind string, hit bool)) *Cache {
	if c != nil {
		c.observe = fn
	}
	return c
}

func (c *Cache) record(key string, hit bool) {
	if c == nil || c.client == nil || c.observe == nil {
		return
	}
	kind := strings.TrimPrefix(key, keyPrefix)
	if i := strings.IndexByte(kind, ':'); i >= 0 {
		kind = kind[:i]
	}
	c.observe(kind, hit)
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Remember returns the cached value for key, or loads and stores it. Cache read and
// write failures degrade to calling load; load errors are returned as is.
func Remember[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if ok, err := c.GetJSON(ctx, key, &cached); err == nil && ok {
		c.record(key, true)
		return cached, nil
	}
	c.record(key, false)
	fresh, err := load(ctx)
	if err != nil {
		return fresh, err
	}
	_ = c.SetJSON(ctx, key, fresh)
	return fresh, nil
}
