package countstore

import (
	"context"
	"sync"
)

type MemCountStore struct {
	mu       sync.Mutex
	counts   map[string]int
	idemSeen map[string]bool
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts:   make(map[string]int),
		idemSeen: make(map[string]bool),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[periodBucket(name, val, period)], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	return s.IncrementBy(ctx, name, val, 1)
}

func (s *MemCountStore) IncrementBy(ctx context.Context, name, val string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incrementLocked(name, val, amount)
	return nil
}

func (s *MemCountStore) IncrementByIdem(ctx context.Context, name, val string, amount int, idemKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idemKey != "" {
		if s.idemSeen[idemKey] {
			return false, nil
		}
		s.idemSeen[idemKey] = true
	}
	s.incrementLocked(name, val, amount)
	return true, nil
}

func (s *MemCountStore) incrementLocked(name, val string, amount int) {
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		s.counts[periodBucket(name, val, p)] += amount
	}
}
