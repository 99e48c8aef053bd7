package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewMemLimitStore()
	base := time.Now()
	clock := base
	var mu sync.Mutex
	store.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	})
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	l := NewLimiter(store)

	res, err := l.Check(ctx, "user1", "create_post")
	assert.NoError(err)
	assert.True(res.Allowed)
	assert.Equal(0, res.ThrottleSeconds())

	// immediate retry is throttled with a countdown
	res, err = l.Check(ctx, "user1", "create_post")
	assert.NoError(err)
	assert.False(res.Allowed)
	assert.True(res.ThrottleSeconds() > 0)
	first := res.RetryAfter

	// countdown strictly decreases as the clock advances
	advance(10 * time.Second)
	res, err = l.Check(ctx, "user1", "create_post")
	assert.NoError(err)
	assert.False(res.Allowed)
	assert.True(res.RetryAfter < first)

	// a different user is unaffected
	res, err = l.Check(ctx, "user2", "create_post")
	assert.NoError(err)
	assert.True(res.Allowed)

	// a different action kind for the same user is unaffected
	res, err = l.Check(ctx, "user1", "journal_write")
	assert.NoError(err)
	assert.True(res.Allowed)

	// past the window boundary the action is allowed again
	advance(30 * time.Second)
	res, err = l.Check(ctx, "user1", "create_post")
	assert.NoError(err)
	assert.True(res.Allowed)
}

func TestLimiterUnknownActionGetsFloor(t *testing.T) {
	assert := assert.New(t)

	l := NewLimiter(NewMemLimitStore())
	assert.Equal(FloorWindow, l.Window("mystery_action"))
	assert.Equal(300*time.Second, l.Window("complete_ritual"))
}

func TestCheckAndSetIsAtomic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// n concurrent requests for the same key: exactly one may pass
	store := NewMemLimitStore()
	const n = 32
	var wg sync.WaitGroup
	var allowedCount int32
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := store.CheckAndSet(ctx, "complete_ritual/user1", 300*time.Second)
			assert.NoError(err)
			if ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(int32(1), allowedCount)
}

func TestThrottleSecondsRoundsUp(t *testing.T) {
	assert := assert.New(t)

	r := Result{Allowed: false, RetryAfter: 1100 * time.Millisecond}
	assert.Equal(2, r.ThrottleSeconds())
	r = Result{Allowed: false, RetryAfter: 200 * time.Millisecond}
	assert.Equal(1, r.ThrottleSeconds())
	r = Result{Allowed: true}
	assert.Equal(0, r.ThrottleSeconds())
}
