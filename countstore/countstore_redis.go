package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisCountPrefix = "count/"
	redisIdemPrefix  = "idem/"
	// idempotency markers outlive any sane client retry horizon
	redisIdemTTL = 24 * time.Hour
)

type RedisCountStore struct {
	Client *redis.Client
}

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
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
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(name, val, period)
	c, err := s.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	return s.IncrementBy(ctx, name, val, 1)
}

func (s *RedisCountStore) IncrementBy(ctx context.Context, name, val string, amount int) error {

	var key string

	// increment all period buckets in a single redis round-trip
	multi := s.Client.Pipeline()

	key = redisCountPrefix + periodBucket(name, val, PeriodHour)
	multi.IncrBy(ctx, key, int64(amount))
	multi.Expire(ctx, key, 2*time.Hour)

	key = redisCountPrefix + periodBucket(name, val, PeriodDay)
	multi.IncrBy(ctx, key, int64(amount))
	multi.Expire(ctx, key, 48*time.Hour)

	key = redisCountPrefix + periodBucket(name, val, PeriodTotal)
	multi.IncrBy(ctx, key, int64(amount))
	// no expiration for total

	_, err := multi.Exec(ctx)
	return err
}

// IncrementByIdem claims the idempotency key with SET NX before touching
// the counters; a lost claim means a retry already applied the increment.
func (s *RedisCountStore) IncrementByIdem(ctx context.Context, name, val string, amount int, idemKey string) (bool, error) {
	if idemKey != "" {
		claimed, err := s.Client.SetNX(ctx, redisIdemPrefix+idemKey, 1, redisIdemTTL).Result()
		if err != nil {
			return false, err
		}
		if !claimed {
			return false, nil
		}
	}
	if err := s.IncrementBy(ctx, name, val, amount); err != nil {
		return false, err
	}
	return true, nil
}
