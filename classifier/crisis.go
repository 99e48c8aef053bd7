package classifier

import (
	"strings"

	"github.com/solacewell/gatekeeper/keyword"
	"github.com/solacewell/gatekeeper/policy"
)

var _ RuleFunc = CrisisRule

// CrisisRule screens for self-harm and crisis language. Any hit is
// terminal: the content must never be published or merely flagged, and the
// caller is expected to surface crisis resources to the author. Matching
// is substring-based, plus a slugified pass to catch spacing evasions.
func CrisisRule(c *Context) error {
	phrase, hit := keyword.ContainsAnyPhrase(c.Text, c.Catalog.CrisisPhrases)
	if !hit {
		slug := keyword.Slugify(c.Text)
		for _, p := range c.Catalog.CrisisPhrases {
			ps := keyword.Slugify(p)
			if len(ps) >= 6 && strings.Contains(slug, ps) {
				phrase, hit = p, true
				break
			}
		}
	}
	if hit {
		c.Escalate(policy.SeverityHigh, policy.ActionReject, "crisis or self-harm language detected")
		c.Logger.Warn("crisis content detected", "phrase", phrase)
		c.Terminate()
	}
	return nil
}
