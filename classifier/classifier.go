// Package classifier screens free-text submissions against a data-driven
// rule catalog and produces a policy.Verdict. Detectors run in a fixed
// priority order because some are terminal (crisis content short-circuits
// everything else), and escalation is strictly monotonic: a later detector
// can raise severity or action, never lower them.
package classifier

import (
	"log/slog"

	"github.com/solacewell/gatekeeper/keyword"
	"github.com/solacewell/gatekeeper/policy"
)

// Context carries one piece of text through the detector chain.
type Context struct {
	Text    string
	Catalog *Catalog
	Logger  *slog.Logger

	Verdict  policy.Verdict
	terminal bool

	tokens []string
}

// Tokens lazily tokenizes the text, shared across detectors.
func (c *Context) Tokens() []string {
	if c.tokens == nil {
		c.tokens = keyword.TokenizeText(c.Text)
	}
	return c.tokens
}

func (c *Context) Escalate(sev policy.Severity, act policy.Action, reason string) {
	c.Verdict.Escalate(sev, act, reason)
}

// Terminate stops the detector chain after the current rule returns.
func (c *Context) Terminate() {
	c.terminal = true
}

type RuleFunc func(c *Context) error

// Classifier runs an ordered rule chain against a catalog.
type Classifier struct {
	Catalog *Catalog
	Rules   []RuleFunc
	Logger  *slog.Logger
}

func New(cat *Catalog, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		Catalog: cat,
		Rules:   DefaultRules(),
		Logger:  logger,
	}
}

// DefaultRules returns the detectors in priority order. Order matters:
// crisis first (terminal), then the additive detectors, quality last.
func DefaultRules() []RuleFunc {
	return []RuleFunc{
		CrisisRule,
		PersonalInfoRule,
		ProfanityRule,
		SpamRule,
		InappropriateRule,
		QualityRule,
	}
}

// Classify runs the rule chain and returns the verdict. Classification is
// safety-critical and fails closed: if a detector panics or errors, the
// text is at minimum flagged for human review, never silently approved.
func (cls *Classifier) Classify(text string) (verdict policy.Verdict) {
	c := &Context{
		Text:    text,
		Catalog: cls.Catalog,
		Logger:  cls.Logger,
		Verdict: policy.Approve(),
	}

	defer func() {
		if r := recover(); r != nil {
			cls.Logger.Error("classifier rule panic", "err", r)
			c.Verdict.Escalate(policy.SeverityMedium, policy.ActionFlag, "classifier error, needs human review")
			verdict = c.Verdict
		}
	}()

	for _, rule := range cls.Rules {
		if err := rule(c); err != nil {
			cls.Logger.Error("classifier rule failed", "err", err)
			c.Verdict.Escalate(policy.SeverityMedium, policy.ActionFlag, "classifier error, needs human review")
			continue
		}
		if c.terminal {
			break
		}
	}
	return c.Verdict
}
