package models

import (
	"time"
)

// queue item lifecycle states
const (
	QueueStatusPending  = "pending"
	QueueStatusApproved = "approved"
	QueueStatusRejected = "rejected"
	QueueStatusEdited   = "edited"
)

// ModerationQueueItem is one piece of flagged content awaiting human
// review. Items are terminal once resolved; re-flagging the same subject
// creates a new row.
type ModerationQueueItem struct {
	ID              string `gorm:"primaryKey"`
	SubjectID       string `gorm:"not null;index"`
	UserID          string `gorm:"not null;index"`
	Content         string `gorm:"not null"`
	FlagReason      string `gorm:"not null"`
	Severity        string `gorm:"not null"`
	Status          string `gorm:"not null;index;default:pending"`
	SuggestedAction string `gorm:"not null"`
	DetectedIssues  string // newline-joined reasons from the classifier
	ModeratorID     *string
	ModeratorNotes  *string
	CreatedAt       time.Time `gorm:"not null"`
	ResolvedAt      *time.Time
}

// moderation log actions
const (
	LogActionFlagged  = "flagged"
	LogActionApproved = "approved"
	LogActionRejected = "rejected"
	LogActionEdited   = "edited"
)

// ModerationLogEntry is the append-only audit trail. Rows are never
// updated or deleted.
type ModerationLogEntry struct {
	ID            uint64 `gorm:"primaryKey"`
	QueueItemID   string `gorm:"not null;index"`
	SubjectID     string `gorm:"not null;index"`
	Action        string `gorm:"not null"`
	ActorID       string `gorm:"not null"`
	Reason        string
	ContentBefore *string
	ContentAfter  *string
	CreatedAt     time.Time `gorm:"not null"`
}

// violation types
const (
	ViolationQuotaExceeded      = "quota_exceeded"
	ViolationRateLimit          = "rate_limit"
	ViolationSuspiciousActivity = "suspicious_activity"
)

// Violation records one usage-abuse incident. Violations expire for
// escalation purposes after a type-dependent TTL; expired rows are kept
// for audit but ignored when counting active strikes.
type Violation struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"not null;index"`
	ViolationType  string `gorm:"not null"`
	Resource       string `gorm:"not null"`
	AttemptedUsage int    `gorm:"not null"`
	AllowedUsage   int    `gorm:"not null"`
	Severity       string `gorm:"not null"`
	ActionTaken    string `gorm:"not null"`
	Details        string
	ExpiresAt      time.Time `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
}
