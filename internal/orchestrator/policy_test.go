package orchestrator

import (
	"testing"

	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/pkg/models"
)

func testPolicy() *Policy {
	return NewPolicy(config.PolicyConfig{
		HighBar:                 8.0,
		AcceptableBar:           6.5,
		MinAttemptsBeforeAccept: 3,
		MaxIterations:           10,
		StandardAfter:           4,
		PremiumAfter:            7,
	})
}

// attemptsWithScores builds a history of local-tier attempts numbered
// from 1, one per score.
func attemptsWithScores(scores ...float64) []models.Attempt {
	out := make([]models.Attempt, 0, len(scores))
	for i, score := range scores {
		out = append(out, models.Attempt{Number: i + 1, Tier: models.TierLocal, Score: score})
	}
	return out
}

func TestPolicy_Decide(t *testing.T) {
	tests := []struct {
		name          string
		scores        []float64
		maxIterations int
		wantKind      models.DecisionKind
		wantReason    string
	}{
		{
			name:          "high bar accepts on first attempt",
			scores:        []float64{9.0},
			maxIterations: 10,
			wantKind:      models.DecisionAccept,
		},
		{
			name:          "high bar accepts exactly at threshold",
			scores:        []float64{8.0},
			maxIterations: 10,
			wantKind:      models.DecisionAccept,
		},
		{
			name:          "acceptable score before min attempts retries",
			scores:        []float64{7.0},
			maxIterations: 10,
			wantKind:      models.DecisionRetry,
		},
		{
			name:          "acceptable score at min attempts accepts",
			scores:        []float64{5.0, 6.0, 7.0},
			maxIterations: 10,
			wantKind:      models.DecisionAccept,
		},
		{
			name:          "below acceptable keeps retrying",
			scores:        []float64{5.0, 6.0, 6.4},
			maxIterations: 10,
			wantKind:      models.DecisionRetry,
		},
		{
			name:          "exhausted iterations abort",
			scores:        []float64{1, 2, 3},
			maxIterations: 3,
			wantKind:      models.DecisionAbort,
			wantReason:    ReasonMaxAttempts,
		},
		{
			name:          "one below the limit still retries",
			scores:        []float64{1, 2},
			maxIterations: 3,
			wantKind:      models.DecisionRetry,
		},
		{
			name:          "high score on the final attempt accepts, not aborts",
			scores:        []float64{1, 2, 9},
			maxIterations: 3,
			wantKind:      models.DecisionAccept,
		},
		{
			name:          "acceptable score on the final attempt accepts, not aborts",
			scores:        []float64{1, 2, 7},
			maxIterations: 3,
			wantKind:      models.DecisionAccept,
		},
	}

	policy := testPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Decide(attemptsWithScores(tt.scores...), tt.maxIterations)
			if decision.Kind != tt.wantKind {
				t.Fatalf("Decide() kind = %s, want %s", decision.Kind, tt.wantKind)
			}
			if tt.wantReason != "" && decision.Reason != tt.wantReason {
				t.Errorf("Decide() reason = %q, want %q", decision.Reason, tt.wantReason)
			}
		})
	}
}

func TestPolicy_DecideEmptyHistoryRetriesLocal(t *testing.T) {
	decision := testPolicy().Decide(nil, 10)
	if decision.Kind != models.DecisionRetry {
		t.Fatalf("expected retry on empty history, got %s", decision.Kind)
	}
	if decision.NextTier != models.TierLocal {
		t.Errorf("expected local tier for first attempt, got %s", decision.NextTier)
	}
}

func TestPolicy_TierForAttempt(t *testing.T) {
	tests := []struct {
		attempt int
		want    models.Tier
	}{
		{1, models.TierLocal},
		{2, models.TierLocal},
		{3, models.TierLocal},
		{4, models.TierStandard},
		{5, models.TierStandard},
		{6, models.TierStandard},
		{7, models.TierPremium},
		{8, models.TierPremium},
		{100, models.TierPremium},
	}

	policy := testPolicy()
	for _, tt := range tests {
		if got := policy.TierForAttempt(tt.attempt); got != tt.want {
			t.Errorf("TierForAttempt(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_RetryCarriesScheduleTier(t *testing.T) {
	policy := testPolicy()

	// Attempt 3 scored low; attempt 4 falls on the standard side of the
	// schedule.
	decision := policy.Decide(attemptsWithScores(1, 2, 3), 10)
	if decision.Kind != models.DecisionRetry {
		t.Fatalf("expected retry, got %s", decision.Kind)
	}
	if decision.NextTier != models.TierStandard {
		t.Errorf("expected escalation to standard for attempt 4, got %s", decision.NextTier)
	}
}

func TestPolicy_EscalationIsSticky(t *testing.T) {
	policy := testPolicy()

	// The latest attempt already ran at premium even though the schedule
	// maps attempt 3 to local. The hint must not downgrade.
	attempts := []models.Attempt{
		{Number: 1, Tier: models.TierLocal, Score: 1},
		{Number: 2, Tier: models.TierPremium, Score: 2},
	}
	decision := policy.Decide(attempts, 10)
	if decision.Kind != models.DecisionRetry {
		t.Fatalf("expected retry, got %s", decision.Kind)
	}
	if decision.NextTier != models.TierPremium {
		t.Errorf("expected sticky premium tier, got %s", decision.NextTier)
	}
}

func TestPolicy_DecideDoesNotMutateHistory(t *testing.T) {
	policy := testPolicy()
	attempts := attemptsWithScores(1, 2, 3)

	first := policy.Decide(attempts, 10)
	second := policy.Decide(attempts, 10)

	if first != second {
		t.Errorf("same history produced different decisions: %+v vs %+v", first, second)
	}
	for i, a := range attempts {
		if a.Number != i+1 {
			t.Errorf("history mutated at index %d: %+v", i, a)
		}
	}
}
