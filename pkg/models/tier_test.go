package models

import "testing"

func TestTier_Valid(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want bool
	}{
		{"local is valid", TierLocal, true},
		{"standard is valid", TierStandard, true},
		{"premium is valid", TierPremium, true},
		{"empty string is invalid", Tier(""), false},
		{"unknown tier is invalid", Tier("unknown"), false},
		{"typo tier is invalid", Tier("premum"), false},
		{"uppercase is invalid", Tier("LOCAL"), false},
		{"mixed case is invalid", Tier("Standard"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.Valid(); got != tt.want {
				t.Errorf("Tier(%q).Valid() = %v, want %v", tt.tier, got, tt.want)
			}
		})
	}
}

func TestTier_Rank(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want int
	}{
		{"local ranks lowest", TierLocal, 1},
		{"standard ranks middle", TierStandard, 2},
		{"premium ranks highest", TierPremium, 3},
		{"unknown ranks below local", Tier("bogus"), 0},
		{"empty ranks below local", Tier(""), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.Rank(); got != tt.want {
				t.Errorf("Tier(%q).Rank() = %d, want %d", tt.tier, got, tt.want)
			}
		})
	}
}

func TestTier_AtLeast(t *testing.T) {
	tests := []struct {
		name  string
		tier  Tier
		other Tier
		want  bool
	}{
		{"premium at least local", TierPremium, TierLocal, true},
		{"premium at least premium", TierPremium, TierPremium, true},
		{"local not at least standard", TierLocal, TierStandard, false},
		{"standard at least local", TierStandard, TierLocal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.AtLeast(tt.other); got != tt.want {
				t.Errorf("Tier(%q).AtLeast(%q) = %v, want %v", tt.tier, tt.other, got, tt.want)
			}
		})
	}
}

func TestMaxTier(t *testing.T) {
	tests := []struct {
		name string
		a, b Tier
		want Tier
	}{
		{"standard beats local", TierLocal, TierStandard, TierStandard},
		{"order does not matter", TierStandard, TierLocal, TierStandard},
		{"equal tiers return same", TierPremium, TierPremium, TierPremium},
		{"unknown loses to local", Tier("bogus"), TierLocal, TierLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxTier(tt.a, tt.b); got != tt.want {
				t.Errorf("MaxTier(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTiers_EscalationOrder(t *testing.T) {
	tiers := Tiers()
	if len(tiers) != 3 {
		t.Fatalf("Tiers() returned %d tiers, want 3", len(tiers))
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Rank() <= tiers[i-1].Rank() {
			t.Errorf("Tiers()[%d] = %q does not rank above %q", i, tiers[i], tiers[i-1])
		}
	}
}
