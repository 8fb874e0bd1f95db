package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// opTimeout bounds every Redis round trip; the cache interface has no ctx.
const opTimeout = 2 * time.Second

// Redis stores JSON-encoded values under a key prefix. A nil client
// degrades to a cache that never hits.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis-backed cache.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *Redis[T]) key(k string) string {
	return r.prefix + k
}

// Get implements port.Cache.
func (r *Redis[T]) Get(key string) (T, bool) {
	var zero T
	if r.client == nil {
		return zero, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache: redis get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Warn("cache: dropping undecodable entry", zap.String("key", key), zap.Error(err))
		r.client.Del(ctx, r.key(key))
		return zero, false
	}
	return v, true
}

// Set implements port.Cache.
func (r *Redis[T]) Set(key string, value T) {
	if r.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("cache: value not encodable", zap.String("key", key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		r.logger.Warn("cache: redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete implements port.Cache.
func (r *Redis[T]) Delete(key string) {
	if r.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	r.client.Del(ctx, r.key(key))
}

// DeletePrefix removes every key under prefix with SCAN.
func (r *Redis[T]) DeletePrefix(prefix string) {
	if r.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("cache: redis scan failed", zap.String("prefix", prefix), zap.Error(err))
	}
}
