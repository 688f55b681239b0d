package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultOpTimeout bounds every Redis round trip.
const DefaultOpTimeout = 500 * time.Millisecond

// Redis stores JSON-encoded values under a key prefix. Redis errors are
// logged and treated as misses so a cache outage never fails a request.
type Redis[T any] struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *zap.Logger
}

// NewRedis wraps client. Keys are stored as prefix + key.
func NewRedis[T any](client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		opTimeout: DefaultOpTimeout,
		logger:    logger,
	}
}

func (r *Redis[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		r.logger.Warn("redis value decode failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

func (r *Redis[T]) Set(key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("redis value encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Ping checks connectivity; used by readiness probes.
func (r *Redis[T]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
