package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNamespace prefixes every key written by RedisCache.
const RedisNamespace = "siteplan:"

// RedisCache stores entries in Redis with native expiry.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db)
// and pings it. Connection failures are retried with backoff.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisCache(ctx, redis.NewClient(opt), time.Second)
}

func newRedisCache(ctx context.Context, rdb *redis.Client, delay time.Duration) (*RedisCache, error) {
	err := retry(ctx, delay, func() error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return Retryable(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisCache{rdb: rdb}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, RedisNamespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in Redis. A zero ttl keeps the key until deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, RedisNamespace+key, data, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, RedisNamespace+key).Err()
}

// Clear deletes every key under RedisNamespace.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, RedisNamespace+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
