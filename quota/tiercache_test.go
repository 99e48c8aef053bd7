package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemTierCacheBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tc := NewMemTierCache(10, time.Hour)

	_, ok, err := tc.GetTier(ctx, "user1")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(tc.SetTier(ctx, "user1", TierPremium))
	tier, ok, err := tc.GetTier(ctx, "user1")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(TierPremium, tier)

	assert.NoError(tc.Invalidate(ctx, "user1"))
	_, ok, err = tc.GetTier(ctx, "user1")
	assert.NoError(err)
	assert.False(ok)
}

func TestMemTierCacheTTL(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tc := NewMemTierCache(10, 10*time.Millisecond)
	assert.NoError(tc.SetTier(ctx, "user1", TierPremiumPlus))
	time.Sleep(50 * time.Millisecond)
	_, ok, err := tc.GetTier(ctx, "user1")
	assert.NoError(err)
	assert.False(ok)
}

func TestMemTierCacheNormalizesGarbage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tc := NewMemTierCache(10, time.Hour)
	assert.NoError(tc.SetTier(ctx, "user1", Tier("enterprise_mega")))
	tier, ok, err := tc.GetTier(ctx, "user1")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(TierFreemium, tier)
}
