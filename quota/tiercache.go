package quota

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TierCache memoizes tier directory lookups so the quota gate doesn't hit
// the identity service on every request. Entries expire on TTL; tier
// changes from the admin surface invalidate eagerly.
type TierCache interface {
	// GetTier returns the cached tier and whether the entry was present.
	GetTier(ctx context.Context, userID string) (Tier, bool, error)
	SetTier(ctx context.Context, userID string, tier Tier) error
	Invalidate(ctx context.Context, userID string) error
}

type MemTierCache struct {
	data *expirable.LRU[string, Tier]
}

var _ TierCache = (*MemTierCache)(nil)

func NewMemTierCache(capacity int, ttl time.Duration) *MemTierCache {
	return &MemTierCache{
		data: expirable.NewLRU[string, Tier](capacity, nil, ttl),
	}
}

func (c *MemTierCache) GetTier(ctx context.Context, userID string) (Tier, bool, error) {
	tier, ok := c.data.Get(userID)
	if !ok {
		return "", false, nil
	}
	// a corrupted entry degrades to freemium, same as an unknown tier
	return NormalizeTier(string(tier)), true, nil
}

func (c *MemTierCache) SetTier(ctx context.Context, userID string, tier Tier) error {
	c.data.Add(userID, tier)
	return nil
}

func (c *MemTierCache) Invalidate(ctx context.Context, userID string) error {
	c.data.Remove(userID)
	return nil
}
