package modqueue

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/solacewell/gatekeeper/models"
	"github.com/solacewell/gatekeeper/policy"
)

// SubjectStore recording side effects for assertions
type mockSubjects struct {
	active  map[string]bool
	content map[string]string
}

func newMockSubjects() *mockSubjects {
	return &mockSubjects{
		active:  make(map[string]bool),
		content: make(map[string]string),
	}
}

func (m *mockSubjects) Activate(ctx context.Context, subjectID string) error {
	m.active[subjectID] = true
	return nil
}

func (m *mockSubjects) Deactivate(ctx context.Context, subjectID string) error {
	m.active[subjectID] = false
	return nil
}

func (m *mockSubjects) ReplaceContent(ctx context.Context, subjectID, content string) error {
	m.content[subjectID] = content
	return nil
}

func testStore(t *testing.T) (*Store, *mockSubjects) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	subjects := newMockSubjects()
	store, err := NewStore(db, subjects, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	return store, subjects
}

func flaggedVerdict() policy.Verdict {
	v := policy.Approve()
	v.Escalate(policy.SeverityMedium, policy.ActionFlag, "spam keyword: buy now")
	return v
}

func enqueueOne(t *testing.T, store *Store, subjectID string) *models.ModerationQueueItem {
	t.Helper()
	item, err := store.Enqueue(context.Background(), EnqueueParams{
		SubjectID: subjectID,
		UserID:    "user1",
		Content:   "buy now while supplies last",
		Verdict:   flaggedVerdict(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestEnqueueCreatesPendingWithLogEntry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := testStore(t)

	item := enqueueOne(t, store, "post-1")
	assert.Equal(models.QueueStatusPending, item.Status)
	assert.Equal("medium", item.Severity)
	assert.Equal("flag", item.SuggestedAction)
	assert.NotEmpty(item.ID)

	entries, err := store.Log(ctx, item.ID)
	assert.NoError(err)
	assert.Equal(1, len(entries))
	assert.Equal(models.LogActionFlagged, entries[0].Action)
	assert.Equal("system", entries[0].ActorID)

	pending, err := store.Pending(ctx, 10)
	assert.NoError(err)
	assert.Equal(1, len(pending))
}

func TestApproveReactivatesSubject(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, subjects := testStore(t)

	item := enqueueOne(t, store, "post-1")
	notes := "looks fine to me"
	err := store.Resolve(ctx, ResolveParams{
		QueueID:     item.ID,
		ModeratorID: "mod-1",
		Decision:    DecisionApprove,
		Notes:       &notes,
	})
	assert.NoError(err)
	assert.True(subjects.active["post-1"])

	entries, err := store.Log(ctx, item.ID)
	assert.NoError(err)
	assert.Equal(2, len(entries))
	assert.Equal(models.LogActionApproved, entries[1].Action)
	assert.Equal("mod-1", entries[1].ActorID)

	pending, err := store.Pending(ctx, 10)
	assert.NoError(err)
	assert.Empty(pending)
}

func TestRejectDeactivatesSubject(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, subjects := testStore(t)

	item := enqueueOne(t, store, "post-2")
	err := store.Resolve(ctx, ResolveParams{
		QueueID:     item.ID,
		ModeratorID: "mod-1",
		Decision:    DecisionReject,
	})
	assert.NoError(err)
	assert.False(subjects.active["post-2"])
}

func TestEditReplacesContentAndLogsBeforeAfter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, subjects := testStore(t)

	item := enqueueOne(t, store, "post-3")
	replacement := "redacted: promotional content removed"
	err := store.Resolve(ctx, ResolveParams{
		QueueID:     item.ID,
		ModeratorID: "mod-2",
		Decision:    DecisionEdit,
		NewContent:  &replacement,
	})
	assert.NoError(err)
	assert.Equal(replacement, subjects.content["post-3"])
	assert.True(subjects.active["post-3"])

	entries, err := store.Log(ctx, item.ID)
	assert.NoError(err)
	assert.Equal(2, len(entries))
	assert.NotNil(entries[1].ContentBefore)
	assert.Equal("buy now while supplies last", *entries[1].ContentBefore)
	assert.Equal(replacement, *entries[1].ContentAfter)

	// edit without content is rejected up front
	err = store.Resolve(ctx, ResolveParams{
		QueueID:     item.ID,
		ModeratorID: "mod-2",
		Decision:    DecisionEdit,
	})
	assert.ErrorIs(err, ErrContentRequired)
}

func TestResolveIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := testStore(t)

	item := enqueueOne(t, store, "post-4")
	p := ResolveParams{QueueID: item.ID, ModeratorID: "mod-1", Decision: DecisionApprove}
	assert.NoError(store.Resolve(ctx, p))

	// second identical resolution: no-op, no duplicate log entry
	assert.NoError(store.Resolve(ctx, p))
	entries, err := store.Log(ctx, item.ID)
	assert.NoError(err)
	assert.Equal(2, len(entries))

	// conflicting decision on a resolved item is an explicit error
	err = store.Resolve(ctx, ResolveParams{QueueID: item.ID, ModeratorID: "mod-1", Decision: DecisionReject})
	assert.ErrorIs(err, ErrAlreadyResolved)
}

func TestResolveRequiresModerator(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := testStore(t)

	item := enqueueOne(t, store, "post-5")
	err := store.Resolve(ctx, ResolveParams{QueueID: item.ID, Decision: DecisionApprove})
	assert.ErrorIs(err, ErrModeratorRequired)

	err = store.Resolve(ctx, ResolveParams{QueueID: "no-such-id", ModeratorID: "mod-1", Decision: DecisionApprove})
	assert.ErrorIs(err, ErrNotFound)
}

func TestReflaggingCreatesNewItem(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store, _ := testStore(t)

	first := enqueueOne(t, store, "post-6")
	assert.NoError(store.Resolve(ctx, ResolveParams{QueueID: first.ID, ModeratorID: "mod-1", Decision: DecisionApprove}))

	second := enqueueOne(t, store, "post-6")
	assert.NotEqual(first.ID, second.ID)

	history, err := store.UserHistory(ctx, "user1", 10)
	assert.NoError(err)
	assert.Equal(2, len(history))
}

// SubjectStore failing its first attempts, to exercise the retry path
type flakySubjects struct {
	*mockSubjects
	failures int
}

func (f *flakySubjects) Activate(ctx context.Context, subjectID string) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("subject service unavailable")
	}
	return f.mockSubjects.Activate(ctx, subjectID)
}

func TestResolveRetriesSubjectEffect(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	subjects := &flakySubjects{mockSubjects: newMockSubjects(), failures: 2}
	store, err := NewStore(db, subjects, slog.Default())
	if err != nil {
		t.Fatal(err)
	}

	item := enqueueOne(t, store, "post-7")
	err = store.Resolve(ctx, ResolveParams{QueueID: item.ID, ModeratorID: "mod-1", Decision: DecisionApprove})
	assert.NoError(err)
	assert.True(subjects.active["post-7"])

	// the resolution itself committed exactly once
	entries, err := store.Log(ctx, item.ID)
	assert.NoError(err)
	assert.Equal(2, len(entries))
}
