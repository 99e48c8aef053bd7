// Package modqueue is the human-review workflow: a persisted queue of
// flagged content plus an append-only audit log. The only system-initiated
// transition is into pending; everything after that requires a moderator
// identity, and every transition appends exactly one log entry.
package modqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solacewell/gatekeeper/models"
	"github.com/solacewell/gatekeeper/policy"
)

var (
	ErrNotFound          = errors.New("moderation queue item not found")
	ErrAlreadyResolved   = errors.New("moderation queue item already resolved")
	ErrModeratorRequired = errors.New("moderator identity required")
	ErrContentRequired   = errors.New("edit decision requires replacement content")
)

// Decision is a moderator's resolution of a pending item.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionEdit    Decision = "edit"
)

// SubjectStore applies visibility side effects to the flagged subject
// (post, journal entry). Implemented by the surrounding application.
type SubjectStore interface {
	Activate(ctx context.Context, subjectID string) error
	Deactivate(ctx context.Context, subjectID string) error
	ReplaceContent(ctx context.Context, subjectID, content string) error
}

type Store struct {
	db       *gorm.DB
	subjects SubjectStore
	logger   *slog.Logger
}

func NewStore(db *gorm.DB, subjects SubjectStore, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&models.ModerationQueueItem{}, &models.ModerationLogEntry{}); err != nil {
		return nil, fmt.Errorf("migrating moderation tables: %w", err)
	}
	return &Store{db: db, subjects: subjects, logger: logger}, nil
}

// EnqueueParams carries a classifier verdict into the queue.
type EnqueueParams struct {
	SubjectID string
	UserID    string
	Content   string
	Verdict   policy.Verdict
}

// Enqueue creates a new pending item for the subject. A subject which was
// previously flagged and resolved gets a fresh item, never a mutation of
// the resolved one.
func (s *Store) Enqueue(ctx context.Context, p EnqueueParams) (*models.ModerationQueueItem, error) {
	reason := "content policy"
	if len(p.Verdict.Reasons) > 0 {
		reason = p.Verdict.Reasons[0]
	}
	item := &models.ModerationQueueItem{
		ID:              uuid.NewString(),
		SubjectID:       p.SubjectID,
		UserID:          p.UserID,
		Content:         p.Content,
		FlagReason:      reason,
		Severity:        p.Verdict.Severity.String(),
		Status:          models.QueueStatusPending,
		SuggestedAction: p.Verdict.SuggestedAction.String(),
		DetectedIssues:  strings.Join(p.Verdict.Reasons, "\n"),
		CreatedAt:       time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return tx.Create(&models.ModerationLogEntry{
			QueueItemID: item.ID,
			SubjectID:   item.SubjectID,
			Action:      models.LogActionFlagged,
			ActorID:     "system",
			Reason:      item.DetectedIssues,
			CreatedAt:   item.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("enqueueing moderation item: %w", err)
	}
	return item, nil
}

// ResolveParams describes one moderator action on a pending item.
type ResolveParams struct {
	QueueID     string
	ModeratorID string
	Decision    Decision
	Notes       *string
	NewContent  *string
}

// Resolve transitions a pending item to its terminal state and applies the
// subject side effect: approve reactivates, reject deactivates, edit
// replaces content and reactivates. Resolving an already-resolved item with
// the same decision is a no-op; a conflicting decision is an error.
func (s *Store) Resolve(ctx context.Context, p ResolveParams) error {
	if p.ModeratorID == "" {
		return ErrModeratorRequired
	}
	newStatus, logAction, err := decisionOutcome(p.Decision)
	if err != nil {
		return err
	}
	if p.Decision == DecisionEdit && (p.NewContent == nil || *p.NewContent == "") {
		return ErrContentRequired
	}

	var item models.ModerationQueueItem
	alreadyResolved := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", p.QueueID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now().UTC()
		entry := &models.ModerationLogEntry{
			QueueItemID: item.ID,
			SubjectID:   item.SubjectID,
			Action:      logAction,
			ActorID:     p.ModeratorID,
			CreatedAt:   now,
		}
		if p.Notes != nil {
			entry.Reason = *p.Notes
		}

		updates := map[string]any{
			"status":       newStatus,
			"moderator_id": p.ModeratorID,
			"resolved_at":  now,
		}
		if p.Notes != nil {
			updates["moderator_notes"] = *p.Notes
		}
		if p.Decision == DecisionEdit {
			before := item.Content
			entry.ContentBefore = &before
			entry.ContentAfter = p.NewContent
			updates["content"] = *p.NewContent
		}

		// guarded update: only a pending row transitions, so concurrent
		// moderators can't both resolve the same item
		res := tx.Model(&models.ModerationQueueItem{}).
			Where("id = ? AND status = ?", item.ID, models.QueueStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost a race or retried: re-read for the terminal status
			if err := tx.First(&item, "id = ?", item.ID).Error; err != nil {
				return err
			}
			if item.Status == newStatus {
				// idempotent retry of the same decision
				alreadyResolved = true
				return nil
			}
			return fmt.Errorf("%w: already %s", ErrAlreadyResolved, item.Status)
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return err
	}
	if alreadyResolved {
		s.logger.Debug("queue item already resolved, skipping", "queueID", p.QueueID, "status", item.Status)
		return nil
	}

	// the item is resolved at this point; a transient subject-store failure
	// must not strand its visibility, so the side effect retries
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 3 * time.Second
	err = backoff.Retry(func() error {
		return s.applySubjectEffect(ctx, &item, p)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		s.logger.Error("subject side effect failed after retries",
			"queueID", p.QueueID, "subjectID", item.SubjectID, "decision", p.Decision, "err", err)
		return fmt.Errorf("applying subject effect for %s: %w", item.SubjectID, err)
	}
	return nil
}

func decisionOutcome(d Decision) (status, logAction string, err error) {
	switch d {
	case DecisionApprove:
		return models.QueueStatusApproved, models.LogActionApproved, nil
	case DecisionReject:
		return models.QueueStatusRejected, models.LogActionRejected, nil
	case DecisionEdit:
		return models.QueueStatusEdited, models.LogActionEdited, nil
	default:
		return "", "", fmt.Errorf("unknown moderation decision: %q", d)
	}
}

func (s *Store) applySubjectEffect(ctx context.Context, item *models.ModerationQueueItem, p ResolveParams) error {
	if s.subjects == nil {
		return nil
	}
	switch p.Decision {
	case DecisionApprove:
		return s.subjects.Activate(ctx, item.SubjectID)
	case DecisionReject:
		return s.subjects.Deactivate(ctx, item.SubjectID)
	case DecisionEdit:
		if err := s.subjects.ReplaceContent(ctx, item.SubjectID, *p.NewContent); err != nil {
			return err
		}
		return s.subjects.Activate(ctx, item.SubjectID)
	}
	return nil
}

// DeactivateSubject hides the subject immediately, used for critical
// auto-flags before any moderator looks at the item.
func (s *Store) DeactivateSubject(ctx context.Context, subjectID string) error {
	if s.subjects == nil {
		return nil
	}
	return s.subjects.Deactivate(ctx, subjectID)
}

// Pending lists unresolved items, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]models.ModerationQueueItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []models.ModerationQueueItem
	err := s.db.WithContext(ctx).
		Where("status = ?", models.QueueStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Log returns the audit trail for one queue item, oldest first.
func (s *Store) Log(ctx context.Context, queueID string) ([]models.ModerationLogEntry, error) {
	var entries []models.ModerationLogEntry
	err := s.db.WithContext(ctx).
		Where("queue_item_id = ?", queueID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}

// UserHistory returns a user's queue items, newest first.
func (s *Store) UserHistory(ctx context.Context, userID string, limit int) ([]models.ModerationQueueItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []models.ModerationQueueItem
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error
	return items, err
}
