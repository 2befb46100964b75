package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is an optional Redis front for catalog responses. A nil *Cache is
// valid and disables caching.
type Cache struct {
	client *redis.Client
	prefix string
}

func NewCache(addr, prefix string) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

func (c *Cache) get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *Cache) set(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil {
		return
	}
	_ = c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) key(op, id string) string {
	if c == nil {
		return ""
	}
	if id == "" {
		return fmt.Sprintf("%s:%s", c.prefix, op)
	}
	return fmt.Sprintf("%s:%s:%s", c.prefix, op, id)
}
