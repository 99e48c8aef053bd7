package quota

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solacewell/gatekeeper/countstore"
)

type mockDirectory struct {
	tiers   map[string]string
	err     error
	lookups int
}

func (d *mockDirectory) GetUserTier(ctx context.Context, userID string) (string, error) {
	d.lookups++
	if d.err != nil {
		return "", d.err
	}
	return d.tiers[userID], nil
}

// counter store which always errors, to exercise the fail-open path
type brokenCountStore struct{}

func (brokenCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	return 0, fmt.Errorf("connection refused")
}
func (brokenCountStore) Increment(ctx context.Context, name, val string) error {
	return fmt.Errorf("connection refused")
}
func (brokenCountStore) IncrementBy(ctx context.Context, name, val string, amount int) error {
	return fmt.Errorf("connection refused")
}
func (brokenCountStore) IncrementByIdem(ctx context.Context, name, val string, amount int, idemKey string) (bool, error) {
	return false, fmt.Errorf("connection refused")
}

func testTracker(dir *mockDirectory) *Tracker {
	return NewTracker(
		countstore.NewMemCountStore(),
		dir,
		NewMemTierCache(100, time.Hour),
		slog.Default(),
	)
}

func TestQuotaBoundary(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := testTracker(&mockDirectory{tiers: map[string]string{"user1": "freemium"}})

	// freemium daily post quota is 2
	res, err := tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.NoError(err)
	assert.True(res.Allowed)
	assert.Equal(0, res.CurrentUsage)
	assert.Equal(2, res.Limit)
	assert.False(res.ResetAt.IsZero())

	// currentUsage = limit-1, amount 1 => allowed, post-state = limit
	_, err = tr.RecordUsage(ctx, "user1", ResourcePosts, 1, "")
	assert.NoError(err)
	res, err = tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.NoError(err)
	assert.True(res.Allowed)
	assert.Equal(1, res.CurrentUsage)

	current, err := tr.RecordUsage(ctx, "user1", ResourcePosts, 1, "")
	assert.NoError(err)
	assert.Equal(2, current)

	// at the limit: denied for any amount >= 1
	res, err = tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.NoError(err)
	assert.False(res.Allowed)
	assert.Equal(2, res.CurrentUsage)
	assert.Equal(2, res.Limit)

	res, err = tr.CheckPermission(ctx, "user1", ResourcePosts, 5)
	assert.NoError(err)
	assert.False(res.Allowed)
}

func TestTiersHaveIndependentLimits(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := testTracker(&mockDirectory{tiers: map[string]string{
		"free1": "freemium",
		"prem1": "premium",
		"plus1": "premium_plus",
	}})

	res, _ := tr.CheckPermission(ctx, "free1", ResourceAIInsights, 1)
	assert.Equal(1, res.Limit)
	res, _ = tr.CheckPermission(ctx, "prem1", ResourceAIInsights, 1)
	assert.Equal(10, res.Limit)
	res, _ = tr.CheckPermission(ctx, "plus1", ResourceAIInsights, 1)
	assert.Equal(50, res.Limit)

	// zero-limit resources deny outright
	res, _ = tr.CheckPermission(ctx, "free1", ResourcePremiumSessions, 1)
	assert.False(res.Allowed)
	assert.Equal(0, res.Limit)
}

func TestUnknownTierAndResourceFailClosed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := testTracker(&mockDirectory{tiers: map[string]string{"user1": "enterprise_mega"}})

	// unknown tier gets freemium limits
	res, _ := tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.Equal(2, res.Limit)
	assert.Equal(TierFreemium, res.Tier)

	// unknown resource gets a zero limit, never unlimited
	res, _ = tr.CheckPermission(ctx, "user1", "teleportation", 1)
	assert.False(res.Allowed)
	assert.Equal(0, res.Limit)
}

func TestTierLookupFailureDefaultsToFreemium(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := testTracker(&mockDirectory{err: fmt.Errorf("identity service down")})

	res, err := tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.NoError(err)
	assert.Equal(TierFreemium, res.Tier)
	assert.Equal(2, res.Limit)
}

func TestTierLookupIsCached(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	dir := &mockDirectory{tiers: map[string]string{"user1": "premium"}}
	tr := testTracker(dir)

	for i := 0; i < 5; i++ {
		_, err := tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
		assert.NoError(err)
	}
	assert.Equal(1, dir.lookups)
}

func TestInvalidateTierForcesRelookup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	dir := &mockDirectory{tiers: map[string]string{"user1": "freemium"}}
	tr := testTracker(dir)

	res, _ := tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.Equal(TierFreemium, res.Tier)

	// subscription upgrade takes effect on the next check
	dir.tiers["user1"] = "premium"
	assert.NoError(tr.InvalidateTier(ctx, "user1"))

	res, _ = tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.Equal(TierPremium, res.Tier)
	assert.Equal(2, dir.lookups)
}

func TestCounterOutageFailsOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := NewTracker(
		brokenCountStore{},
		&mockDirectory{tiers: map[string]string{"user1": "freemium"}},
		nil,
		slog.Default(),
	)

	res, err := tr.CheckPermission(ctx, "user1", ResourcePosts, 1)
	assert.NoError(err)
	assert.True(res.Allowed)
}

func TestRecordUsageIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := testTracker(&mockDirectory{tiers: map[string]string{"user1": "premium"}})

	current, err := tr.RecordUsage(ctx, "user1", ResourceJournalEntries, 1, "req-1")
	assert.NoError(err)
	assert.Equal(1, current)

	// same idempotency key: no double count
	current, err = tr.RecordUsage(ctx, "user1", ResourceJournalEntries, 1, "req-1")
	assert.NoError(err)
	assert.Equal(1, current)

	current, err = tr.RecordUsage(ctx, "user1", ResourceJournalEntries, 1, "req-2")
	assert.NoError(err)
	assert.Equal(2, current)
}
