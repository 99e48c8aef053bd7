package classifier

import (
	"fmt"

	"github.com/solacewell/gatekeeper/policy"
)

var _ RuleFunc = PersonalInfoRule

// PersonalInfoRule matches each PII pattern category independently and
// appends one reason per category found. PII is additive and non-terminal:
// the suggested action is edit (request redaction), never an outright
// reject on its own.
func PersonalInfoRule(c *Context) error {
	for _, pat := range c.Catalog.piiPatterns {
		if pat.re.MatchString(c.Text) {
			c.Escalate(policy.SeverityMedium, policy.ActionEdit, fmt.Sprintf("possible %s", pat.category))
		}
	}
	return nil
}
