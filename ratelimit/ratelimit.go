// Package ratelimit enforces per-user cooldown windows between repeated
// actions of the same kind. The store contract is explicitly check-AND-set:
// the "was the user inside the window" check and the "stamp the new action
// time" write happen as one atomic operation, so two concurrent requests
// from the same user can never both pass a check only one should.
package ratelimit

import (
	"context"
	"time"
)

type LimitStore interface {
	// CheckAndSet atomically claims the key for the window. Returns
	// allowed=false with the remaining cooldown when the key is still
	// claimed by a previous action.
	CheckAndSet(ctx context.Context, key string, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// Cooldown windows per action kind. Anything not listed gets FloorWindow.
var DefaultWindows = map[string]time.Duration{
	"complete_ritual":       300 * time.Second,
	"start_premium_session": 60 * time.Second,
	"create_post":           30 * time.Second,
	"journal_write":         10 * time.Second,
}

// FloorWindow is the generic minimum spacing between any two actions of
// the same kind, for kinds without an explicit window.
const FloorWindow = time.Second

type Result struct {
	Allowed    bool          `json:"allowed"`
	RetryAfter time.Duration `json:"-"`
}

// ThrottleSeconds is the countdown the caller can show the user, rounded
// up so it never reads zero while still throttled.
func (r Result) ThrottleSeconds() int {
	if r.Allowed || r.RetryAfter <= 0 {
		return 0
	}
	return int((r.RetryAfter + time.Second - 1) / time.Second)
}

// Limiter maps action kinds to windows over an injected store.
type Limiter struct {
	Store   LimitStore
	Windows map[string]time.Duration
}

func NewLimiter(store LimitStore) *Limiter {
	return &Limiter{
		Store:   store,
		Windows: DefaultWindows,
	}
}

func (l *Limiter) Window(actionKind string) time.Duration {
	if w, ok := l.Windows[actionKind]; ok {
		return w
	}
	return FloorWindow
}

// Check applies the cooldown for (userID, actionKind). On allow, the
// action timestamp is already stamped; there is no separate commit step.
func (l *Limiter) Check(ctx context.Context, userID, actionKind string) (Result, error) {
	key := actionKind + "/" + userID
	allowed, retryAfter, err := l.Store.CheckAndSet(ctx, key, l.Window(actionKind))
	if err != nil {
		return Result{}, err
	}
	return Result{Allowed: allowed, RetryAfter: retryAfter}, nil
}
