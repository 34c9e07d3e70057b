package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrLockNotAcquired is returned when a write lock stays taken after all retries.
var ErrLockNotAcquired = errors.New("failed to acquire lock after retries")

// Lock retry policy for row-level write locks.
var (
	LockRetries    = 3
	LockRetryDelay = 2 * time.Second
	LockTTL        = 10 * time.Second
)

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	MinIdleConns int
	ReadTimeout  time.Duration
	MaxRetries   int
}

// DefaultRedisConfig returns the pool settings used by the server.
func DefaultRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:          url,
		PoolSize:     10,
		DialTimeout:  30 * time.Second,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		MaxRetries:   3,
	}
}

// NewRedisClient creates a Redis client with the provided configuration
func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = config.PoolSize
	opt.MinIdleConns = config.MinIdleConns
	opt.DialTimeout = config.DialTimeout
	opt.ReadTimeout = config.ReadTimeout
	opt.MaxRetries = config.MaxRetries

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis server: %w", err)
	}

	log.Info().
		Int("pool_size", config.PoolSize).
		Int("min_idle_conns", config.MinIdleConns).
		Dur("dial_timeout", config.DialTimeout).
		Dur("read_timeout", config.ReadTimeout).
		Int("max_retries", config.MaxRetries).
		Msg("redis client initialized")
	return client, nil
}

// Locker hands out short distributed locks keyed by row.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// NewLock acquires a distributed lock using Redis
func (l *Locker) NewLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if l.client == nil {
		return false, errors.New("Redis client is not initialized")
	}
	return l.client.SetNX(ctx, key, value, ttl).Result()
}

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

var releaseLock = redis.NewScript(releaseLockScript)

// ReleaseLock releases a distributed lock using Redis with Lua scripting
func (l *Locker) ReleaseLock(ctx context.Context, key string, value string) error {
	if l.client == nil {
		return errors.New("Redis client is not initialized")
	}

	result, err := releaseLock.Run(ctx, l.client, []string{key}, value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n, ok := result.(int64); !ok || n == 0 {
		return errors.New("lock release failed: not the lock owner")
	}
	return nil
}

// WithLock runs fn while holding the lock on key, retrying acquisition
// LockRetries times.
func (l *Locker) WithLock(ctx context.Context, key string, fn func() error) error {
	value := uuid.New().String()

	var locked bool
	var err error
	for i := 0; i < LockRetries; i++ {
		locked, err = l.NewLock(ctx, key, value, LockTTL)
		if err == nil && locked {
			break
		}
		if i < LockRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(LockRetryDelay):
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
	}
	if !locked {
		return ErrLockNotAcquired
	}

	defer func() {
		if err := l.ReleaseLock(context.WithoutCancel(ctx), key, value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}()

	return fn()
}

// MonitorRedisPool logs the connection pool statistics for monitoring
func MonitorRedisPool(client *redis.Client) {
	stats := client.PoolStats()
	log.Info().
		Uint32("total", stats.TotalConns).
		Uint32("idle", stats.IdleConns).
		Uint32("stale", stats.StaleConns).
		Msg("redis pool stats")
}
