package repository

import (
	"context"
	"fmt"
	"time"

	"aforo/internal/config"

	"github.com/redis/go-redis/v9"
)

const importLockPrefix = "aforo:import_lock:"

// releaseScript deletes the lock only when it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisImportLock struct {
	client *redis.Client
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisImportLock(client *redis.Client) *RedisImportLock {
	return &RedisImportLock{client: client}
}

func importLockKey(date string) string {
	return importLockPrefix + date
}

// Acquire takes the lock of date for owner. It returns false when another
// owner holds it.
func (r *RedisImportLock) Acquire(ctx context.Context, date, owner string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, importLockKey(date), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	return ok, nil
}

func (r *RedisImportLock) Release(ctx context.Context, date, owner string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := releaseScript.Run(ctx, r.client, []string{importLockKey(date)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release import lock: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
