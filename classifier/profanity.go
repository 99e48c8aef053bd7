package classifier

import (
	"fmt"
	"strings"

	"github.com/solacewell/gatekeeper/keyword"
	"github.com/solacewell/gatekeeper/policy"
)

var _ RuleFunc = ProfanityRule

// ProfanityRule does word-boundary matching against the tiered profanity
// lists. A strong term escalates to high/reject; moderate terms only raise
// the verdict to at least medium/flag, never lowering anything PII or
// crisis already set.
func ProfanityRule(c *Context) error {
	tokens := make([]string, 0, 2*len(c.Tokens()))
	for _, tok := range c.Tokens() {
		tokens = append(tokens, tok)
		// also try de-pluralized
		if trimmed := strings.TrimSuffix(tok, "s"); trimmed != tok {
			tokens = append(tokens, trimmed)
		}
	}
	if tok, ok := keyword.AnyTokenInSet(tokens, c.Catalog.ProfanityStrong); ok {
		c.Escalate(policy.SeverityHigh, policy.ActionReject, fmt.Sprintf("strong profanity: %s", tok))
		return nil
	}
	if tok, ok := keyword.AnyTokenInSet(tokens, c.Catalog.ProfanityModerate); ok {
		c.Escalate(policy.SeverityMedium, policy.ActionFlag, fmt.Sprintf("moderate profanity: %s", tok))
	}
	return nil
}
