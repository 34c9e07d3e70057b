package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON cache-aside layer over Redis.
type Cache struct {
	client *redis.Client
	group  singleflight.Group
	ttl    time.Duration
}

// NewCache creates a new Cache instance, ensuring that the client is not nil.
func NewCache(client *redis.Client, ttl time.Duration) (*Cache, error) {
	if client == nil {
		return nil, errors.New("Redis client is not initialized")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Client exposes the underlying Redis client for non-cache keys.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// DeleteAll removes every key matching pattern.
func (c *Cache) DeleteAll(ctx context.Context, pattern string) error {
	// Use SCAN for better efficiency on large datasets
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get returns "" with no error when the key does not exist.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// loadTimeout bounds a shared load, which outlives the caller that started it.
var loadTimeout = 10 * time.Second

// Remember returns the cached JSON value of key, or calls load, caches its
// result and returns it. Concurrent misses on the same key share one load;
// a caller that gives up does not cancel it for the others. Cache errors are
// logged and never fail the read.
func Remember[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if cached, err := c.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if cached != "" {
		var value T
		if err := json.Unmarshal([]byte(cached), &value); err == nil {
			return value, nil
		}
		log.Warn().Str("key", key).Msg("dropping undecodable cache entry")
	}

	results := c.group.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
			return value, nil
		}
		if err := c.Set(ctx, key, encoded, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
