package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the deadline between replicas that use the same
// provider credentials.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix overrides the key namespace (default "propertydetails:ratelimit").
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if trimmed := strings.Trim(prefix, ":"); trimmed != "" {
			s.prefix = trimmed
		}
	}
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "propertydetails:ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) LoadDeadline(ctx context.Context, key string) (time.Time, bool, error) {
	if s == nil || s.rdb == nil {
		return time.Time{}, false, errors.New("redis store is not initialized")
	}

	unix, err := s.rdb.Get(ctx, s.redisKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read redis deadline: %w", err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

func (s *RedisStore) StoreDeadline(ctx context.Context, key string, resetAt time.Time) error {
	if s == nil || s.rdb == nil {
		return errors.New("redis store is not initialized")
	}

	if err := s.rdb.Set(ctx, s.redisKey(key), resetAt.Unix(), 0).Err(); err != nil {
		return fmt.Errorf("write redis deadline: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearDeadline(ctx context.Context, key string) error {
	if s == nil || s.rdb == nil {
		return errors.New("redis store is not initialized")
	}

	if err := s.rdb.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("clear redis deadline: %w", err)
	}
	return nil
}

// Ping checks connectivity for health probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.rdb == nil {
		return errors.New("redis store is not initialized")
	}
	return s.rdb.Ping(ctx).Err()
}
