// Package policy defines the shared vocabulary for enforcement decisions:
// severity levels, moderation/enforcement actions, and the verdict struct
// returned by every check.
//
// Severity and Action are closed enums with an explicit total order. All
// combination logic is "take the maximum", never averaged, so a later
// low-priority signal can never loosen a decision already made by an
// earlier, higher-priority one.
package policy

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func ParseSeverity(raw string) (Severity, error) {
	switch raw {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity: %q", raw)
	}
}

// MaxSeverity returns the more severe of the two.
func MaxSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

// Action is what the decision engine wants done with the subject. The
// moderation actions form one escalation ladder, the usage-enforcement
// actions another; both orderings are "later is more restrictive".
type Action int

const (
	// content moderation actions
	ActionApprove Action = iota
	ActionFlag
	ActionEdit
	ActionReject
	// usage enforcement actions
	ActionWarning
	ActionThrottle
	ActionTemporaryBlock
	ActionAccountReview
)

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionFlag:
		return "flag"
	case ActionEdit:
		return "edit"
	case ActionReject:
		return "reject"
	case ActionWarning:
		return "warning"
	case ActionThrottle:
		return "throttle"
	case ActionTemporaryBlock:
		return "temporary_block"
	case ActionAccountReview:
		return "account_review"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

func ParseAction(raw string) (Action, error) {
	switch raw {
	case "approve":
		return ActionApprove, nil
	case "flag":
		return ActionFlag, nil
	case "edit":
		return ActionEdit, nil
	case "reject":
		return ActionReject, nil
	case "warning":
		return ActionWarning, nil
	case "throttle":
		return ActionThrottle, nil
	case "temporary_block":
		return ActionTemporaryBlock, nil
	case "account_review":
		return ActionAccountReview, nil
	default:
		return ActionApprove, fmt.Errorf("unknown action: %q", raw)
	}
}

// MaxAction returns the more restrictive of the two.
func MaxAction(a, b Action) Action {
	if a > b {
		return a
	}
	return b
}

// Blocking reports whether the action denies the triggering request
// outright, as opposed to letting it through provisionally.
func (a Action) Blocking() bool {
	switch a {
	case ActionReject, ActionTemporaryBlock, ActionAccountReview:
		return true
	}
	return false
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	v, err := ParseSeverity(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (a Action) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Action) UnmarshalJSON(b []byte) error {
	v, err := ParseAction(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Verdict is the uniform output of any enforcement check.
type Verdict struct {
	Allowed         bool     `json:"allowed"`
	Severity        Severity `json:"severity"`
	Reasons         []string `json:"reasons,omitempty"`
	SuggestedAction Action   `json:"suggested_action"`
	RequiresReview  bool     `json:"requires_review"`
}

// Approve returns the default verdict for clean content.
func Approve() Verdict {
	return Verdict{
		Allowed:         true,
		Severity:        SeverityLow,
		SuggestedAction: ActionApprove,
	}
}

// Escalate folds one detector's proposal into the verdict: severity and
// action only ever ratchet upward, and the reason is appended in detector
// order.
func (v *Verdict) Escalate(sev Severity, act Action, reason string) {
	v.Severity = MaxSeverity(v.Severity, sev)
	v.SuggestedAction = MaxAction(v.SuggestedAction, act)
	if reason != "" {
		v.Reasons = append(v.Reasons, reason)
	}
	v.RequiresReview = v.SuggestedAction != ActionApprove
	v.Allowed = !v.SuggestedAction.Blocking()
}
