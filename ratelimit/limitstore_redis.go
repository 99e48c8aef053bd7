package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisLimitPrefix = "ratelimit/"

// RedisLimitStore implements the atomic check-and-set with a single
// `SET key NX PX window` round trip: the key existing means the window is
// still open, and claiming it stamps the new action in the same command.
type RedisLimitStore struct {
	Client *redis.Client
}

var _ LimitStore = (*RedisLimitStore)(nil)

func NewRedisLimitStore(redisURL string) (*RedisLimitStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisLimitStore{Client: rdb}, nil
}

func (s *RedisLimitStore) CheckAndSet(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	claimed, err := s.Client.SetNX(ctx, redisLimitPrefix+key, 1, window).Result()
	if err != nil {
		return false, 0, err
	}
	if claimed {
		return true, 0, nil
	}
	ttl, err := s.Client.PTTL(ctx, redisLimitPrefix+key).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// key expired between the two commands; treat as a full window
		ttl = window
	}
	return false, ttl, nil
}
