package quota

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// RedisTierCache shares tier entries across service instances, with a
// small in-process TinyLFU layer in front so hot users skip the round
// trip entirely.
type RedisTierCache struct {
	data *cache.Cache
	ttl  time.Duration
}

var _ TierCache = (*RedisTierCache)(nil)

func NewRedisTierCache(redisURL string, ttl time.Duration) (*RedisTierCache, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(5_000, ttl),
	})
	return &RedisTierCache{
		data: data,
		ttl:  ttl,
	}, nil
}

func tierCacheKey(userID string) string {
	return "tier/" + userID
}

func (c *RedisTierCache) GetTier(ctx context.Context, userID string) (Tier, bool, error) {
	var val string
	err := c.data.Get(ctx, tierCacheKey(userID), &val)
	if err == cache.ErrCacheMiss {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return NormalizeTier(val), true, nil
}

func (c *RedisTierCache) SetTier(ctx context.Context, userID string, tier Tier) error {
	return c.data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   tierCacheKey(userID),
		Value: string(tier),
		TTL:   c.ttl,
	})
}

func (c *RedisTierCache) Invalidate(ctx context.Context, userID string) error {
	err := c.data.Delete(ctx, tierCacheKey(userID))
	if err == cache.ErrCacheMiss {
		return nil
	}
	return err
}
