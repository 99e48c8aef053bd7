package main

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/solacewell/gatekeeper/gaming"
)

// UserTier maps a user to their subscription tier. The billing system
// upserts rows here when subscriptions change; missing rows mean freemium.
type UserTier struct {
	UserID    string    `gorm:"primaryKey"`
	Tier      string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// CompletionEvent is one ritual completion, kept for the anti-gaming
// heuristics. Rows older than the analysis window are garbage.
type CompletionEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      string    `gorm:"index:idx_completion_user_time,priority:1;not null"`
	CompletedAt time.Time `gorm:"index:idx_completion_user_time,priority:2;not null"`
	DwellTimeMS int64     `gorm:"not null"`
}

// DBDirectory implements the tier lookup and completion history over the
// service database.
type DBDirectory struct {
	db *gorm.DB
}

func NewDBDirectory(db *gorm.DB) (*DBDirectory, error) {
	if err := db.AutoMigrate(&UserTier{}, &CompletionEvent{}); err != nil {
		return nil, err
	}
	return &DBDirectory{db: db}, nil
}

func (d *DBDirectory) GetUserTier(ctx context.Context, userID string) (string, error) {
	var row UserTier
	err := d.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Tier, nil
}

func (d *DBDirectory) SetUserTier(ctx context.Context, userID, tier string) error {
	row := UserTier{UserID: userID, Tier: tier, UpdatedAt: time.Now()}
	return d.db.WithContext(ctx).Save(&row).Error
}

func (d *DBDirectory) RecordCompletion(ctx context.Context, userID string, completedAt time.Time, dwell time.Duration) error {
	row := CompletionEvent{
		UserID:      userID,
		CompletedAt: completedAt,
		DwellTimeMS: dwell.Milliseconds(),
	}
	return d.db.WithContext(ctx).Create(&row).Error
}

func (d *DBDirectory) GetRecentCompletions(ctx context.Context, userID string, window time.Duration) ([]gaming.Completion, error) {
	var rows []CompletionEvent
	cutoff := time.Now().Add(-window)
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND completed_at > ?", userID, cutoff).
		Order("completed_at desc").
		Limit(200).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]gaming.Completion, len(rows))
	for i, r := range rows {
		out[i] = gaming.Completion{
			CompletedAt: r.CompletedAt,
			DwellTime:   time.Duration(r.DwellTimeMS) * time.Millisecond,
		}
	}
	return out, nil
}
