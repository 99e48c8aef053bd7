package quota

// Subscription tiers. Unknown tier strings fail closed to freemium, the
// most restrictive table; unknown resources fail closed to a zero limit.
type Tier string

const (
	TierFreemium    Tier = "freemium"
	TierPremium     Tier = "premium"
	TierPremiumPlus Tier = "premium_plus"
)

// Resource kinds with per-day quotas.
const (
	ResourceRitualsCreated    = "rituals_created"
	ResourceRitualCompletions = "ritual_completions"
	ResourceJournalEntries    = "journal_entries"
	ResourcePosts             = "posts"
	ResourceAIInsights        = "ai_insights"
	ResourcePremiumSessions   = "premium_sessions"
)

var tierLimits = map[Tier]map[string]int{
	TierFreemium: {
		ResourceRitualsCreated:    3,
		ResourceRitualCompletions: 10,
		ResourceJournalEntries:    5,
		ResourcePosts:             2,
		ResourceAIInsights:        1,
		ResourcePremiumSessions:   0,
	},
	TierPremium: {
		ResourceRitualsCreated:    20,
		ResourceRitualCompletions: 50,
		ResourceJournalEntries:    50,
		ResourcePosts:             10,
		ResourceAIInsights:        10,
		ResourcePremiumSessions:   5,
	},
	TierPremiumPlus: {
		ResourceRitualsCreated:    100,
		ResourceRitualCompletions: 200,
		ResourceJournalEntries:    200,
		ResourcePosts:             50,
		ResourceAIInsights:        50,
		ResourcePremiumSessions:   20,
	},
}

// NormalizeTier maps arbitrary input to a known tier, defaulting closed.
func NormalizeTier(raw string) Tier {
	switch Tier(raw) {
	case TierPremium:
		return TierPremium
	case TierPremiumPlus:
		return TierPremiumPlus
	default:
		return TierFreemium
	}
}

// Limit returns the per-day limit for (tier, resource), failing closed.
func Limit(tier Tier, resource string) int {
	limits, ok := tierLimits[tier]
	if !ok {
		limits = tierLimits[TierFreemium]
	}
	return limits[resource]
}
