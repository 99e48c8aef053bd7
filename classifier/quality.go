package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/solacewell/gatekeeper/policy"
)

var excessivePunct = regexp.MustCompile(`[!?]{4,}`)

const (
	minContentLength = 5
	maxCharRun       = 10
)

var _ RuleFunc = QualityRule

// QualityRule catches low-effort content: long repeated-character runs,
// sub-minimal length, shouting on long text, punctuation walls. Quality
// issues only ever raise approve to flag, never to reject on their own.
func QualityRule(c *Context) error {
	text := strings.TrimSpace(c.Text)

	if hasCharRun(text, maxCharRun+1) {
		c.Escalate(policy.SeverityLow, policy.ActionFlag, "repeated character run")
	}
	// runes, not bytes, so multibyte scripts measure the same as ASCII
	if utf8.RuneCountInString(text) < minContentLength {
		c.Escalate(policy.SeverityLow, policy.ActionFlag, "content too short")
	}
	if len(text) > 20 && capsRatio(text) > 0.8 {
		c.Escalate(policy.SeverityLow, policy.ActionFlag, "excessive capitalization")
	}
	if excessivePunct.MatchString(text) {
		c.Escalate(policy.SeverityLow, policy.ActionFlag, "excessive punctuation")
	}
	return nil
}

// reports whether any rune repeats n or more times consecutively
// (RE2 has no backreferences, so this is a plain scan)
func hasCharRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
