// Package gaming holds heuristics for detecting abuse of reward mechanics:
// users mashing through ritual completions or padding journals with
// synthetic text to farm streaks and achievements. Each heuristic is a
// pure function of recent activity producing an independent Signal; the
// set is handed to the decision engine (or a human) uninterpreted, never
// collapsed into one score.
package gaming

import (
	"context"
	"time"
)

// Completion is one reward-bearing event from the user's recent history.
type Completion struct {
	CompletedAt time.Time     `json:"completed_at"`
	DwellTime   time.Duration `json:"dwell_time"`
}

// HistorySource provides recent activity. Implemented by the surrounding
// application's storage layer.
type HistorySource interface {
	GetRecentCompletions(ctx context.Context, userID string, window time.Duration) ([]Completion, error)
}

const (
	CheckRapidCompletion   = "rapid_completion"
	CheckContentQuality    = "content_quality"
	CheckMinimalEngagement = "minimal_engagement"
)

// per-check risk thresholds above which the signal demands action
var actionThresholds = map[string]int{
	CheckRapidCompletion:   70,
	CheckContentQuality:    60,
	CheckMinimalEngagement: 80,
}

// Signal is one heuristic's risk assessment. Ephemeral: computed on
// demand, persisted only when ActionRequired.
type Signal struct {
	CheckType      string         `json:"check_type"`
	RiskScore      int            `json:"risk_score"` // 0-100
	Confidence     int            `json:"confidence"` // 0-100
	Details        map[string]any `json:"details,omitempty"`
	ActionRequired bool           `json:"action_required"`
}

func newSignal(checkType string, risk, confidence int, details map[string]any) Signal {
	if risk > 100 {
		risk = 100
	}
	if confidence > 100 {
		confidence = 100
	}
	return Signal{
		CheckType:      checkType,
		RiskScore:      risk,
		Confidence:     confidence,
		Details:        details,
		ActionRequired: risk >= actionThresholds[checkType],
	}
}

// ActionThreshold returns the risk score at which the named check demands
// action. Unknown check types get the most permissive threshold.
func ActionThreshold(checkType string) int {
	if t, ok := actionThresholds[checkType]; ok {
		return t
	}
	return 100
}

// Analyzer runs all heuristics for one event.
type Analyzer struct {
	History HistorySource
}

func NewAnalyzer(history HistorySource) *Analyzer {
	return &Analyzer{History: history}
}

// Analyze runs every heuristic for a completion event with optional
// accompanying journal text, returning all signals (triggered or not).
func (a *Analyzer) Analyze(ctx context.Context, userID, journalText string) ([]Signal, error) {
	completions, err := a.History.GetRecentCompletions(ctx, userID, rapidWindow)
	if err != nil {
		return nil, err
	}
	signals := []Signal{
		RapidCompletionCheck(completions),
		MinimalEngagementCheck(completions),
	}
	if journalText != "" {
		signals = append(signals, ContentQualityCheck(journalText))
	}
	return signals, nil
}

// Triggered filters a signal set down to the ones demanding action.
func Triggered(signals []Signal) []Signal {
	var out []Signal
	for _, s := range signals {
		if s.ActionRequired {
			out = append(out, s)
		}
	}
	return out
}
