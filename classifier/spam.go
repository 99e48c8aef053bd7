package classifier

import (
	"fmt"
	"unicode"

	"github.com/solacewell/gatekeeper/keyword"
	"github.com/solacewell/gatekeeper/policy"
)

var _ RuleFunc = SpamRule

// SpamRule combines a promotional keyword list with structural heuristics:
// more than two URLs, or a majority-caps body on anything longer than a
// short quip. Spam raises the verdict to at least medium/flag.
func SpamRule(c *Context) error {
	if kw, ok := keyword.ContainsAnyPhrase(c.Text, c.Catalog.SpamKeywords); ok {
		c.Escalate(policy.SeverityMedium, policy.ActionFlag, fmt.Sprintf("spam keyword: %s", kw))
	}

	if urls := keyword.ExtractURLs(c.Text); len(urls) > 2 {
		c.Escalate(policy.SeverityMedium, policy.ActionFlag, fmt.Sprintf("excessive links (%d)", len(urls)))
	}

	if len(c.Text) > 20 && capsRatio(c.Text) > 0.5 {
		c.Escalate(policy.SeverityMedium, policy.ActionFlag, "mostly capital letters")
	}
	return nil
}

// fraction of letters which are upper-case; non-letters don't count
func capsRatio(text string) float64 {
	var letters, caps int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				caps++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(caps) / float64(letters)
}
