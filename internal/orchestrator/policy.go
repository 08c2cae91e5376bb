package orchestrator

import (
	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/pkg/models"
)

// Machine-readable reasons attached to terminal job results.
const (
	// ReasonAccepted marks a completed job.
	ReasonAccepted = "accepted"
	// ReasonMaxAttempts marks a job that exhausted its iteration budget.
	ReasonMaxAttempts = "max attempts exhausted"
	// ReasonNoAnswer marks a job abandoned at an unanswered question.
	ReasonNoAnswer = "no answer"
	// ReasonCancelled marks an externally cancelled job.
	ReasonCancelled = "cancelled"
	// ReasonInterrupted marks a job cut short by process shutdown.
	ReasonInterrupted = "interrupted"
)

// Policy decides, after each scored attempt, whether a job retries,
// accepts, or aborts. Decisions are pure: the same history always
// yields the same decision, and history is never mutated.
//
// The two-threshold design exits early on excellent results while
// still requiring a minimum number of attempts before settling for a
// merely acceptable one.
type Policy struct {
	// HighBar accepts immediately at any attempt number.
	HighBar float64
	// AcceptableBar accepts only once MinAttempts have been made.
	AcceptableBar float64
	// MinAttempts is the attempt count required before AcceptableBar
	// applies.
	MinAttempts int
	// StandardAfter is the attempt number at which retries escalate to
	// the standard tier.
	StandardAfter int
	// PremiumAfter is the attempt number at which retries escalate to
	// the premium tier.
	PremiumAfter int
}

// NewPolicy builds a policy from config values.
func NewPolicy(cfg config.PolicyConfig) *Policy {
	return &Policy{
		HighBar:       cfg.HighBar,
		AcceptableBar: cfg.AcceptableBar,
		MinAttempts:   cfg.MinAttemptsBeforeAccept,
		StandardAfter: cfg.StandardAfter,
		PremiumAfter:  cfg.PremiumAfter,
	}
}

// Decide maps the latest attempt in history to a decision. Accept
// checks run first, so a high-scoring final attempt completes the job
// even at the iteration limit. Retries carry a tier hint that never
// downgrades once escalated.
func (p *Policy) Decide(attempts []models.Attempt, maxIterations int) models.Decision {
	if len(attempts) == 0 {
		return models.Retry(models.TierLocal)
	}
	latest := attempts[len(attempts)-1]
	n := latest.Number

	if latest.Score >= p.HighBar {
		return models.Accept()
	}
	if latest.Score >= p.AcceptableBar && n >= p.MinAttempts {
		return models.Accept()
	}
	if n >= maxIterations {
		return models.Abort(ReasonMaxAttempts)
	}

	// Escalation is sticky: the hint for the next attempt never ranks
	// below the tier already used.
	next := models.MaxTier(p.TierForAttempt(n+1), latest.Tier)
	return models.Retry(next)
}

// TierForAttempt returns the tier an attempt number maps to under the
// escalation schedule.
func (p *Policy) TierForAttempt(n int) models.Tier {
	switch {
	case p.PremiumAfter > 0 && n >= p.PremiumAfter:
		return models.TierPremium
	case p.StandardAfter > 0 && n >= p.StandardAfter:
		return models.TierStandard
	default:
		return models.TierLocal
	}
}
