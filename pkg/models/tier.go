package models

// Tier represents a named level of generation cost and quality.
type Tier string

const (
	// TierLocal is the cheapest tier, served by a local OpenAI-compatible model.
	TierLocal Tier = "local"
	// TierStandard is the mid tier, served by a mid-size cloud model.
	TierStandard Tier = "standard"
	// TierPremium is the most expensive tier, served by a frontier cloud model.
	TierPremium Tier = "premium"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierLocal, TierStandard, TierPremium:
		return true
	default:
		return false
	}
}

// Rank returns the tier's position in the escalation order, cheapest first.
// Unknown tiers rank below local so they never win a max comparison.
func (t Tier) Rank() int {
	switch t {
	case TierLocal:
		return 1
	case TierStandard:
		return 2
	case TierPremium:
		return 3
	default:
		return 0
	}
}

// AtLeast returns true if the tier ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// MaxTier returns the higher-ranked of a and b.
func MaxTier(a, b Tier) Tier {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Tiers returns all tiers in escalation order, cheapest first.
func Tiers() []Tier {
	return []Tier{TierLocal, TierStandard, TierPremium}
}
