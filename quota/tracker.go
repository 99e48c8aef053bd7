// Package quota enforces per-tier daily resource quotas. Usage lives in a
// period-bucketed counter store; "reset" happens lazily when the UTC day
// rolls over, there is no sweeper. Tier lookups go to an external directory
// and are cached.
//
// Quota enforcement fails open: if the counter store or the tier directory
// is unreachable, requests are allowed and the incident logged. Product
// availability outweighs strict metering for a transient outage. (Content
// safety is the opposite; see the classifier.)
package quota

import (
	"context"
	"log/slog"
	"time"

	"github.com/solacewell/gatekeeper/countstore"
)

// TierDirectory resolves a user's subscription tier. Provided by the
// surrounding application (billing/auth), out of scope here.
type TierDirectory interface {
	GetUserTier(ctx context.Context, userID string) (string, error)
}

type PermissionResult struct {
	Allowed      bool      `json:"allowed"`
	Tier         Tier      `json:"tier"`
	Resource     string    `json:"resource"`
	CurrentUsage int       `json:"current_usage"`
	Limit        int       `json:"limit"`
	ResetAt      time.Time `json:"reset_at"`
}

type Tracker struct {
	Counters  countstore.CountStore
	Directory TierDirectory
	Cache     TierCache
	Logger    *slog.Logger
}

func NewTracker(counters countstore.CountStore, dir TierDirectory, cache TierCache, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		Counters:  counters,
		Directory: dir,
		Cache:     cache,
		Logger:    logger,
	}
}

// ResolveTier returns the user's tier, cached. Lookup failures default
// closed to freemium: a user we can't identify gets the smallest quotas,
// never the largest.
func (t *Tracker) ResolveTier(ctx context.Context, userID string) Tier {
	if t.Cache != nil {
		if tier, ok, err := t.Cache.GetTier(ctx, userID); err == nil && ok {
			return tier
		}
	}
	raw, err := t.Directory.GetUserTier(ctx, userID)
	if err != nil {
		t.Logger.Warn("tier lookup failed, defaulting to freemium", "userID", userID, "err", err)
		return TierFreemium
	}
	tier := NormalizeTier(raw)
	if t.Cache != nil {
		if err := t.Cache.SetTier(ctx, userID, tier); err != nil {
			t.Logger.Warn("tier cache set failed", "userID", userID, "err", err)
		}
	}
	return tier
}

// InvalidateTier drops the cached tier so a subscription change takes
// effect on the next check instead of after the cache TTL.
func (t *Tracker) InvalidateTier(ctx context.Context, userID string) error {
	if t.Cache == nil {
		return nil
	}
	return t.Cache.Invalidate(ctx, userID)
}

// CheckPermission reports whether the user may consume `amount` more of
// the resource today. It does not record usage; call RecordUsage after the
// action succeeds.
func (t *Tracker) CheckPermission(ctx context.Context, userID, resource string, amount int) (PermissionResult, error) {
	tier := t.ResolveTier(ctx, userID)
	limit := Limit(tier, resource)
	resetAt := countstore.PeriodEnd(countstore.PeriodDay)

	current, err := t.Counters.GetCount(ctx, resource, userID, countstore.PeriodDay)
	if err != nil {
		// fail open: don't let a counter-store outage take the product down
		t.Logger.Error("usage counter read failed, allowing request", "userID", userID, "resource", resource, "err", err)
		return PermissionResult{
			Allowed:  true,
			Tier:     tier,
			Resource: resource,
			Limit:    limit,
			ResetAt:  resetAt,
		}, nil
	}

	return PermissionResult{
		Allowed:      current+amount <= limit,
		Tier:         tier,
		Resource:     resource,
		CurrentUsage: current,
		Limit:        limit,
		ResetAt:      resetAt,
	}, nil
}

// RecordUsage increments the user's counter after a successful permission
// check. With a non-empty idemKey the increment applies at most once, so
// client retries don't double-count. Returns the usage after the write.
func (t *Tracker) RecordUsage(ctx context.Context, userID, resource string, amount int, idemKey string) (int, error) {
	applied, err := t.Counters.IncrementByIdem(ctx, resource, userID, amount, idemKey)
	if err != nil {
		return 0, err
	}
	if !applied {
		t.Logger.Debug("duplicate usage record skipped", "userID", userID, "resource", resource, "idemKey", idemKey)
	}
	current, err := t.Counters.GetCount(ctx, resource, userID, countstore.PeriodDay)
	if err != nil {
		return 0, err
	}
	return current, nil
}
