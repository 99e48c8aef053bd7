package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/solacewell/gatekeeper/classifier"
	"github.com/solacewell/gatekeeper/countstore"
	"github.com/solacewell/gatekeeper/enforce"
	"github.com/solacewell/gatekeeper/gaming"
	"github.com/solacewell/gatekeeper/modqueue"
	"github.com/solacewell/gatekeeper/quota"
	"github.com/solacewell/gatekeeper/ratelimit"
)

// MemTierDirectory is a fixed userID -> tier map for tests and local
// development. Unlisted users resolve to the zero tier.
type MemTierDirectory struct {
	Tiers map[string]string
}

func (d *MemTierDirectory) GetUserTier(ctx context.Context, userID string) (string, error) {
	return d.Tiers[userID], nil
}

// MemSubjectStore records activation state and content edits in memory.
type MemSubjectStore struct {
	mu      sync.Mutex
	Active  map[string]bool
	Content map[string]string
}

func NewMemSubjectStore() *MemSubjectStore {
	return &MemSubjectStore{
		Active:  make(map[string]bool),
		Content: make(map[string]string),
	}
}

func (s *MemSubjectStore) Activate(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Active[subjectID] = true
	return nil
}

func (s *MemSubjectStore) Deactivate(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Active[subjectID] = false
	return nil
}

func (s *MemSubjectStore) ReplaceContent(ctx context.Context, subjectID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Content[subjectID] = content
	return nil
}

func (s *MemSubjectStore) IsActive(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, ok := s.Active[subjectID]
	return ok && active
}

// MemHistorySource replays a canned per-user completion history.
type MemHistorySource struct {
	Completions map[string][]gaming.Completion
}

func (h *MemHistorySource) GetRecentCompletions(ctx context.Context, userID string, window time.Duration) ([]gaming.Completion, error) {
	var out []gaming.Completion
	cutoff := time.Now().Add(-window)
	for _, c := range h.Completions[userID] {
		if c.CompletedAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

// EngineTestFixture wires an Engine against purely in-memory stores and
// an in-memory sqlite database. Panics on setup failure; intended for
// tests and fakedata generation only.
func EngineTestFixture() (*Engine, *MemSubjectStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		panic(fmt.Sprintf("opening test database: %v", err))
	}

	subjects := NewMemSubjectStore()
	queue, err := modqueue.NewStore(db, subjects, logger)
	if err != nil {
		panic(fmt.Sprintf("setting up moderation queue: %v", err))
	}
	violations, err := enforce.NewStore(db, logger)
	if err != nil {
		panic(fmt.Sprintf("setting up violations store: %v", err))
	}

	dir := &MemTierDirectory{Tiers: map[string]string{
		"user-free":    string(quota.TierFreemium),
		"user-premium": string(quota.TierPremium),
		"user-plus":    string(quota.TierPremiumPlus),
	}}
	counters := countstore.NewMemCountStore()
	cache := quota.NewMemTierCache(100, time.Minute)
	tracker := quota.NewTracker(counters, dir, cache, logger)

	limiter := ratelimit.NewLimiter(ratelimit.NewMemLimitStore())
	analyzer := gaming.NewAnalyzer(&MemHistorySource{Completions: map[string][]gaming.Completion{}})

	eng := New(logger, classifier.New(classifier.DefaultCatalog(), logger), tracker, limiter, analyzer, queue, violations)
	return eng, subjects
}
