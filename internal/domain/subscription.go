package domain

// Tier is a subscription level that determines quota limits.
type Tier string

// Known subscription tiers
const (
	TierFree  Tier = "free"
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
)

// IsValid reports whether the tier is one of the known tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierBasic, TierPro:
		return true
	default:
		return false
	}
}

// SubscriptionPolicy holds the static limits of a tier. A nil limit means
// unlimited.
type SubscriptionPolicy struct {
	MaxTotalQuizzes       *int
	MaxGenerationsPerDay  *int
	MaxFilesPerGeneration *int
	MaxInputTokens        *int
}

func limit(n int) *int { return &n }

var subscriptionPolicies = map[Tier]SubscriptionPolicy{
	TierFree: {
		MaxTotalQuizzes:       limit(3),
		MaxGenerationsPerDay:  limit(1),
		MaxFilesPerGeneration: limit(1),
		MaxInputTokens:        limit(100_000),
	},
	TierBasic: {
		MaxTotalQuizzes:       limit(50),
		MaxGenerationsPerDay:  limit(10),
		MaxFilesPerGeneration: limit(5),
		MaxInputTokens:        limit(500_000),
	},
	TierPro: {
		MaxFilesPerGeneration: limit(20),
		MaxInputTokens:        limit(2_000_000),
	},
}

// PolicyForTier returns the limits of the tier. Unknown tiers get the free
// tier's limits.
func PolicyForTier(tier Tier) SubscriptionPolicy {
	if policy, ok := subscriptionPolicies[tier]; ok {
		return policy
	}
	return subscriptionPolicies[TierFree]
}
