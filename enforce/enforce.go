// Package enforce turns quota, rate-limit, and anti-gaming breaches into
// persisted Violation records with a deterministic severity, enforcement
// action, and expiry. Enforcement state self-heals: every violation
// carries an ExpiresAt, and expired rows stop counting toward escalation
// without any manual cleanup.
package enforce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solacewell/gatekeeper/models"
	"github.com/solacewell/gatekeeper/policy"
)

// violation TTLs by type
var violationTTLs = map[string]time.Duration{
	models.ViolationQuotaExceeded:      24 * time.Hour,
	models.ViolationRateLimit:          time.Hour,
	models.ViolationSuspiciousActivity: 7 * 24 * time.Hour,
}

const defaultViolationTTL = 24 * time.Hour

func TTLFor(violationType string) time.Duration {
	if ttl, ok := violationTTLs[violationType]; ok {
		return ttl
	}
	return defaultViolationTTL
}

// SeverityForOverage grades how far past the allowance the user went.
func SeverityForOverage(attempted, allowed int) policy.Severity {
	if allowed <= 0 {
		return policy.SeverityCritical
	}
	ratio := float64(attempted) / float64(allowed)
	switch {
	case ratio > 3:
		return policy.SeverityCritical
	case ratio > 2:
		return policy.SeverityHigh
	case ratio > 1.5:
		return policy.SeverityMedium
	default:
		return policy.SeverityLow
	}
}

// ActionForSeverity maps severity onto the enforcement ladder.
func ActionForSeverity(sev policy.Severity) policy.Action {
	switch sev {
	case policy.SeverityCritical:
		return policy.ActionAccountReview
	case policy.SeverityHigh:
		return policy.ActionTemporaryBlock
	case policy.SeverityMedium:
		return policy.ActionThrottle
	default:
		return policy.ActionWarning
	}
}

// repeat offenders get pushed one step up the ladder
const repeatOffenderThreshold = 3

func EscalateForRepeat(act policy.Action, activeViolations int) policy.Action {
	if activeViolations < repeatOffenderThreshold {
		return act
	}
	switch act {
	case policy.ActionWarning:
		return policy.ActionThrottle
	case policy.ActionThrottle:
		return policy.ActionTemporaryBlock
	case policy.ActionTemporaryBlock:
		return policy.ActionAccountReview
	default:
		return act
	}
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&models.Violation{}); err != nil {
		return nil, fmt.Errorf("migrating violations table: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

type ViolationParams struct {
	UserID        string
	ViolationType string
	Resource      string
	Attempted     int
	Allowed       int
	Details       string
}

// Record grades the breach, factors in the user's active violation count
// for repeat-offender escalation, and persists the result.
func (s *Store) Record(ctx context.Context, p ViolationParams) (*models.Violation, error) {
	sev := SeverityForOverage(p.Attempted, p.Allowed)
	act := ActionForSeverity(sev)

	active, err := s.CountActive(ctx, p.UserID)
	if err != nil {
		s.logger.Warn("active violation count failed, skipping escalation", "userID", p.UserID, "err", err)
	} else {
		act = EscalateForRepeat(act, active)
	}

	now := time.Now().UTC()
	v := &models.Violation{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		ViolationType:  p.ViolationType,
		Resource:       p.Resource,
		AttemptedUsage: p.Attempted,
		AllowedUsage:   p.Allowed,
		Severity:       sev.String(),
		ActionTaken:    act.String(),
		Details:        p.Details,
		ExpiresAt:      now.Add(TTLFor(p.ViolationType)),
		CreatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, fmt.Errorf("recording violation: %w", err)
	}
	return v, nil
}

// Active returns the user's unexpired violations, newest first.
func (s *Store) Active(ctx context.Context, userID string) ([]models.Violation, error) {
	var out []models.Violation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, time.Now().UTC()).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

func (s *Store) CountActive(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Violation{}).
		Where("user_id = ? AND expires_at > ?", userID, time.Now().UTC()).
		Count(&n).Error
	return int(n), err
}
