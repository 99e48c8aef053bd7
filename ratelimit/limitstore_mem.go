package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemLimitStore is a process-local store for tests and single-instance
// deployments. Multi-instance deployments need the redis store, otherwise
// each instance enforces its own independent windows.
type MemLimitStore struct {
	mu      sync.Mutex
	stamps  map[string]time.Time
	windows map[string]time.Duration

	// injectable clock for tests
	now func() time.Time
}

var _ LimitStore = (*MemLimitStore)(nil)

func NewMemLimitStore() *MemLimitStore {
	return &MemLimitStore{
		stamps:  make(map[string]time.Time),
		windows: make(map[string]time.Duration),
		now:     time.Now,
	}
}

func (s *MemLimitStore) CheckAndSet(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.stamps[key]; ok {
		w := s.windows[key]
		if elapsed := now.Sub(last); elapsed < w {
			return false, w - elapsed, nil
		}
	}
	s.stamps[key] = now
	s.windows[key] = window
	return true, 0, nil
}

// SetClock replaces the wall clock, for tests.
func (s *MemLimitStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
