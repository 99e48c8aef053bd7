package classifier

import (
	"fmt"

	"github.com/solacewell/gatekeeper/keyword"
	"github.com/solacewell/gatekeeper/policy"
)

var _ RuleFunc = InappropriateRule

// InappropriateRule covers adult content, drug sales, and weapons. These
// reject outright but are not terminal like crisis: later quality reasons
// still accumulate for the moderator's benefit.
func InappropriateRule(c *Context) error {
	categories := []struct {
		name string
		list []string
	}{
		{"adult", c.Catalog.InappropriateAdult},
		{"drug-related", c.Catalog.InappropriateDrugs},
		{"weapons-related", c.Catalog.InappropriateWeapons},
	}
	for _, cat := range categories {
		if kw, ok := keyword.ContainsAnyPhrase(c.Text, cat.list); ok {
			c.Escalate(policy.SeverityHigh, policy.ActionReject, fmt.Sprintf("%s content: %s", cat.name, kw))
		}
	}
	return nil
}
