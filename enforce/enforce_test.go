package enforce

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/solacewell/gatekeeper/models"
	"github.com/solacewell/gatekeeper/policy"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewStore(db, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSeverityForOverage(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(policy.SeverityLow, SeverityForOverage(3, 2))        // 1.5x
	assert.Equal(policy.SeverityMedium, SeverityForOverage(4, 2))     // 2x
	assert.Equal(policy.SeverityHigh, SeverityForOverage(5, 2))       // 2.5x
	assert.Equal(policy.SeverityCritical, SeverityForOverage(7, 2))   // 3.5x
	assert.Equal(policy.SeverityCritical, SeverityForOverage(1, 0))   // zero allowance
	assert.Equal(policy.SeverityLow, SeverityForOverage(1, 1))
}

func TestActionForSeverity(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(policy.ActionWarning, ActionForSeverity(policy.SeverityLow))
	assert.Equal(policy.ActionThrottle, ActionForSeverity(policy.SeverityMedium))
	assert.Equal(policy.ActionTemporaryBlock, ActionForSeverity(policy.SeverityHigh))
	assert.Equal(policy.ActionAccountReview, ActionForSeverity(policy.SeverityCritical))
}

func TestEscalateForRepeat(t *testing.T) {
	assert := assert.New(t)

	// under the threshold nothing changes
	assert.Equal(policy.ActionWarning, EscalateForRepeat(policy.ActionWarning, 2))

	assert.Equal(policy.ActionThrottle, EscalateForRepeat(policy.ActionWarning, 3))
	assert.Equal(policy.ActionTemporaryBlock, EscalateForRepeat(policy.ActionThrottle, 5))
	assert.Equal(policy.ActionAccountReview, EscalateForRepeat(policy.ActionTemporaryBlock, 3))
	// already at the top
	assert.Equal(policy.ActionAccountReview, EscalateForRepeat(policy.ActionAccountReview, 10))
}

func TestTTLFor(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(24*time.Hour, TTLFor(models.ViolationQuotaExceeded))
	assert.Equal(time.Hour, TTLFor(models.ViolationRateLimit))
	assert.Equal(7*24*time.Hour, TTLFor(models.ViolationSuspiciousActivity))
	assert.Equal(24*time.Hour, TTLFor("something_else"))
}

func TestRecordPersistsGradedViolation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := testStore(t)

	v, err := store.Record(ctx, ViolationParams{
		UserID:        "user1",
		ViolationType: models.ViolationQuotaExceeded,
		Resource:      "posts",
		Attempted:     5,
		Allowed:       2,
	})
	assert.NoError(err)
	assert.Equal("high", v.Severity)
	assert.Equal("temporary_block", v.ActionTaken)
	assert.True(v.ExpiresAt.After(time.Now().UTC()))
	assert.True(v.ExpiresAt.Before(time.Now().UTC().Add(25*time.Hour)))

	active, err := store.Active(ctx, "user1")
	assert.NoError(err)
	assert.Equal(1, len(active))
}

func TestExpiredViolationsDontCount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := testStore(t)

	// an already-expired row, as if written days ago
	expired := &models.Violation{
		ID:            "old-1",
		UserID:        "user1",
		ViolationType: models.ViolationRateLimit,
		Resource:      "create_post",
		Severity:      "low",
		ActionTaken:   "warning",
		ExpiresAt:     time.Now().UTC().Add(-time.Hour),
		CreatedAt:     time.Now().UTC().Add(-2 * time.Hour),
	}
	assert.NoError(store.db.Create(expired).Error)

	n, err := store.CountActive(ctx, "user1")
	assert.NoError(err)
	assert.Equal(0, n)

	active, err := store.Active(ctx, "user1")
	assert.NoError(err)
	assert.Empty(active)
}

func TestRepeatOffenderEscalation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := testStore(t)

	// three mild strikes first
	for i := 0; i < 3; i++ {
		_, err := store.Record(ctx, ViolationParams{
			UserID:        "user1",
			ViolationType: models.ViolationRateLimit,
			Resource:      "create_post",
			Attempted:     1,
			Allowed:       1,
		})
		assert.NoError(err)
	}

	// the fourth identical breach escalates warning -> throttle
	v, err := store.Record(ctx, ViolationParams{
		UserID:        "user1",
		ViolationType: models.ViolationRateLimit,
		Resource:      "create_post",
		Attempted:     1,
		Allowed:       1,
	})
	assert.NoError(err)
	assert.Equal("low", v.Severity)
	assert.Equal("throttle", v.ActionTaken)
}
