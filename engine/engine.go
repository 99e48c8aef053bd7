// Package engine wires the enforcement pipelines together: the content
// classifier feeding the moderation queue, and the quota/rate-limit gates
// feeding the violations ledger. It is a library invoked in-process by
// request handlers; cmd/gatekeeper exposes the same operations over HTTP.
//
// Two failure philosophies, deliberately asymmetric: classification fails
// closed (an unrunnable detector means "flag for review", never a silent
// approve), while quota and rate-limit infrastructure fails open (a store
// outage means "allow and log", availability beats strict metering).
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/solacewell/gatekeeper/classifier"
	"github.com/solacewell/gatekeeper/enforce"
	"github.com/solacewell/gatekeeper/gaming"
	"github.com/solacewell/gatekeeper/models"
	"github.com/solacewell/gatekeeper/modqueue"
	"github.com/solacewell/gatekeeper/policy"
	"github.com/solacewell/gatekeeper/quota"
	"github.com/solacewell/gatekeeper/ratelimit"
)

type Engine struct {
	Logger     *slog.Logger
	Quota      *quota.Tracker
	Limiter    *ratelimit.Limiter
	Gaming     *gaming.Analyzer
	Queue      *modqueue.Store
	Violations *enforce.Store
	// used to alert the moderation channel about high-severity flags (optional)
	Notifier Notifier

	classifier atomic.Pointer[classifier.Classifier]
}

func New(logger *slog.Logger, cls *classifier.Classifier, q *quota.Tracker, l *ratelimit.Limiter, g *gaming.Analyzer, queue *modqueue.Store, violations *enforce.Store) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	eng := &Engine{
		Logger:     logger,
		Quota:      q,
		Limiter:    l,
		Gaming:     g,
		Queue:      queue,
		Violations: violations,
	}
	eng.classifier.Store(cls)
	return eng
}

// SetClassifier swaps in a new classifier (eg, after a rule catalog
// reload) without interrupting in-flight checks.
func (eng *Engine) SetClassifier(cls *classifier.Classifier) {
	eng.classifier.Store(cls)
}

func (eng *Engine) Classifier() *classifier.Classifier {
	return eng.classifier.Load()
}

// ClassifyContent screens one piece of text and returns the verdict.
// Stateless; nothing is persisted.
func (eng *Engine) ClassifyContent(ctx context.Context, text string) policy.Verdict {
	start := time.Now()
	verdict := eng.Classifier().Classify(text)
	classifyDuration.WithLabelValues(verdict.SuggestedAction.String()).Observe(time.Since(start).Seconds())
	verdictCount.WithLabelValues(verdict.SuggestedAction.String(), verdict.Severity.String()).Inc()
	return verdict
}

// AutoModerate classifies the subject's content and, when review is
// required, enqueues it for human moderation. A critical-severity flag or
// an outright-blocking action hides the subject immediately, before any
// moderator looks at it. Persistence is retried but never blocks the
// verdict being returned.
func (eng *Engine) AutoModerate(ctx context.Context, subjectID, userID, text string) policy.Verdict {
	verdict := eng.ClassifyContent(ctx, text)
	if !verdict.RequiresReview {
		return verdict
	}

	logger := eng.Logger.With("subjectID", subjectID, "userID", userID)

	// hide first, review second
	if verdict.Severity >= policy.SeverityCritical || verdict.SuggestedAction.Blocking() {
		if err := eng.Queue.DeactivateSubject(ctx, subjectID); err != nil {
			logger.Error("deactivating flagged subject failed", "err", err)
		}
	}

	var item *models.ModerationQueueItem
	err := eng.persistWithRetry(ctx, "moderation queue item", func() error {
		var err error
		item, err = eng.Queue.Enqueue(ctx, modqueue.EnqueueParams{
			SubjectID: subjectID,
			UserID:    userID,
			Content:   text,
			Verdict:   verdict,
		})
		return err
	})
	if err != nil {
		// verdict still stands; the flag is only lost from the queue
		return verdict
	}
	queueItemCount.Inc()
	logger.Info("content auto-flagged",
		"queueID", item.ID,
		"severity", verdict.Severity.String(),
		"action", verdict.SuggestedAction.String())

	if eng.Notifier != nil && verdict.Severity >= policy.SeverityHigh {
		if err := eng.Notifier.NotifyFlag(ctx, item, verdict); err != nil {
			logger.Warn("flag notification failed", "err", err)
		}
	}
	return verdict
}

// ResolveQueueItem applies a moderator's decision to a pending item.
func (eng *Engine) ResolveQueueItem(ctx context.Context, p modqueue.ResolveParams) error {
	if err := eng.Queue.Resolve(ctx, p); err != nil {
		return err
	}
	queueResolutionCount.WithLabelValues(string(p.Decision)).Inc()
	return nil
}

// CheckUsagePermission is the cheap synchronous quota gate. A denial
// records a quota violation as a side effect (best-effort).
func (eng *Engine) CheckUsagePermission(ctx context.Context, userID, resource string, amount int) (quota.PermissionResult, error) {
	res, err := eng.Quota.CheckPermission(ctx, userID, resource, amount)
	if err != nil {
		return res, err
	}
	usageCheckCount.WithLabelValues(resource, strconv.FormatBool(res.Allowed)).Inc()

	if !res.Allowed && eng.Violations != nil {
		_ = eng.persistWithRetry(ctx, "quota violation", func() error {
			v, err := eng.Violations.Record(ctx, enforce.ViolationParams{
				UserID:        userID,
				ViolationType: models.ViolationQuotaExceeded,
				Resource:      resource,
				Attempted:     res.CurrentUsage + amount,
				Allowed:       res.Limit,
			})
			if err == nil {
				violationCount.WithLabelValues(v.ViolationType, v.Severity).Inc()
			}
			return err
		})
	}
	return res, nil
}

// CheckRateLimit enforces the per-action cooldown. The check and the
// timestamp write are one atomic store operation. Store failures fail
// open with the incident logged.
func (eng *Engine) CheckRateLimit(ctx context.Context, userID, actionKind string) ratelimit.Result {
	res, err := eng.Limiter.Check(ctx, userID, actionKind)
	if err != nil {
		eng.Logger.Error("rate limit store unavailable, allowing request", "userID", userID, "actionKind", actionKind, "err", err)
		return ratelimit.Result{Allowed: true}
	}
	rateLimitCount.WithLabelValues(actionKind, strconv.FormatBool(res.Allowed)).Inc()

	if !res.Allowed && eng.Violations != nil {
		_ = eng.persistWithRetry(ctx, "rate limit violation", func() error {
			v, err := eng.Violations.Record(ctx, enforce.ViolationParams{
				UserID:        userID,
				ViolationType: models.ViolationRateLimit,
				Resource:      actionKind,
				Attempted:     1,
				Allowed:       1,
			})
			if err == nil {
				violationCount.WithLabelValues(v.ViolationType, v.Severity).Inc()
			}
			return err
		})
	}
	return res
}

type RecordUsageParams struct {
	UserID   string
	Resource string
	Amount   int
	// IdemKey deduplicates client retries; empty disables deduplication
	IdemKey string
	// JournalText is the free text accompanying a completion, if any
	JournalText string
}

type RecordUsageOutcome struct {
	CurrentUsage  int               `json:"current_usage"`
	Violation     *models.Violation `json:"violation,omitempty"`
	GamingSignals []gaming.Signal   `json:"gaming_signals,omitempty"`
}

// RecordUsage increments the usage counter after a successful action and
// runs the anti-gaming heuristics over the user's recent history.
// Triggered signals are persisted as suspicious-activity violations; the
// full signal set is returned for the caller (or a reviewer) to interpret.
func (eng *Engine) RecordUsage(ctx context.Context, p RecordUsageParams) (RecordUsageOutcome, error) {
	var out RecordUsageOutcome

	current, err := eng.Quota.RecordUsage(ctx, p.UserID, p.Resource, p.Amount, p.IdemKey)
	if err != nil {
		// fail open: the action already happened, losing a count beats failing it
		eng.Logger.Error("usage recording failed", "userID", p.UserID, "resource", p.Resource, "err", err)
	}
	out.CurrentUsage = current

	if eng.Gaming == nil {
		return out, nil
	}
	signals, err := eng.Gaming.Analyze(ctx, p.UserID, p.JournalText)
	if err != nil {
		eng.Logger.Error("anti-gaming analysis failed", "userID", p.UserID, "err", err)
		return out, nil
	}
	out.GamingSignals = signals

	for _, sig := range gaming.Triggered(signals) {
		gamingSignalCount.WithLabelValues(sig.CheckType).Inc()
		if eng.Violations == nil {
			continue
		}
		details, _ := json.Marshal(sig.Details)
		_ = eng.persistWithRetry(ctx, "suspicious activity violation", func() error {
			v, err := eng.Violations.Record(ctx, enforce.ViolationParams{
				UserID:        p.UserID,
				ViolationType: models.ViolationSuspiciousActivity,
				Resource:      sig.CheckType,
				Attempted:     sig.RiskScore,
				Allowed:       gaming.ActionThreshold(sig.CheckType),
				Details:       string(details),
			})
			if err == nil {
				violationCount.WithLabelValues(v.ViolationType, v.Severity).Inc()
				if out.Violation == nil {
					out.Violation = v
				}
			}
			return err
		})
	}
	return out, nil
}

type SubmitParams struct {
	UserID    string
	SubjectID string
	Resource  string
	// ActionKind applies the rate-limit gate when non-empty
	ActionKind string
	Text       string
	IdemKey    string
}

type SubmitResult struct {
	Allowed    bool                    `json:"allowed"`
	Permission *quota.PermissionResult `json:"permission,omitempty"`
	RateLimit  *ratelimit.Result       `json:"rate_limit,omitempty"`
	Verdict    *policy.Verdict         `json:"verdict,omitempty"`
	Usage      *RecordUsageOutcome     `json:"usage,omitempty"`
}

// SubmitContent runs the full gate order for one inbound action: quota
// first (cheap), then the rate limit, then — only if both pass — the
// content classifier and usage recording. A quota denial never reaches
// the classifier.
func (eng *Engine) SubmitContent(ctx context.Context, p SubmitParams) (SubmitResult, error) {
	perm, err := eng.CheckUsagePermission(ctx, p.UserID, p.Resource, 1)
	if err != nil {
		return SubmitResult{}, err
	}
	if !perm.Allowed {
		return SubmitResult{Allowed: false, Permission: &perm}, nil
	}

	if p.ActionKind != "" {
		rl := eng.CheckRateLimit(ctx, p.UserID, p.ActionKind)
		if !rl.Allowed {
			return SubmitResult{Allowed: false, Permission: &perm, RateLimit: &rl}, nil
		}
	}

	var verdict policy.Verdict
	if p.Text != "" {
		verdict = eng.AutoModerate(ctx, p.SubjectID, p.UserID, p.Text)
	} else {
		verdict = policy.Approve()
	}
	if !verdict.Allowed {
		return SubmitResult{Allowed: false, Permission: &perm, Verdict: &verdict}, nil
	}

	usage, err := eng.RecordUsage(ctx, RecordUsageParams{
		UserID:      p.UserID,
		Resource:    p.Resource,
		Amount:      1,
		IdemKey:     p.IdemKey,
		JournalText: p.Text,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		Allowed:    true,
		Permission: &perm,
		Verdict:    &verdict,
		Usage:      &usage,
	}, nil
}
