package scryfall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pageKeyPrefix = "scryfall:page:"

// PageCache stores raw search page bodies keyed by request URL.
type PageCache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, page []byte) error
}

// RedisPageCache implements PageCache on Redis with a fixed TTL.
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPageCache creates a Redis-backed page cache.
func NewRedisPageCache(client *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached page for url. A miss is (nil, false, nil).
func (c *RedisPageCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, pageKeyPrefix+url).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get page: %w", err)
	}
	return data, true, nil
}

// Set stores page under url with the configured TTL.
func (c *RedisPageCache) Set(ctx context.Context, url string, page []byte) error {
	if err := c.client.Set(ctx, pageKeyPrefix+url, page, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set page: %w", err)
	}
	return nil
}
