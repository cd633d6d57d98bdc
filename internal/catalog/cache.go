package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	listCacheKey    = "catalog:products"
	detailKeyPrefix = "catalog:product:"
)

// Cache wraps Redis helpers for JSON payloads. A nil client turns every call into a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
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
	if c == nil || c.client == nil || key == "" || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the list entry and the detail entries for ids.
func (c *Cache) Invalidate(ctx context.Context, ids ...string) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := []string{listCacheKey}
	for _, id := range ids {
		keys = append(keys, detailCacheKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

func detailCacheKey(id string) string {
	return detailKeyPrefix + id
}
