package models

// DecisionKind identifies what the escalation policy decided.
type DecisionKind string

const (
	// DecisionRetry means run another attempt, at NextTier.
	DecisionRetry DecisionKind = "retry"
	// DecisionAccept means the latest attempt's artifact is the result.
	DecisionAccept DecisionKind = "accept"
	// DecisionAbort means stop without an accepted result.
	DecisionAbort DecisionKind = "abort"
)

// Decision is the pure output of the escalation policy. It carries no
// ownership and never aliases job state.
type Decision struct {
	// Kind is what the policy decided.
	Kind DecisionKind `json:"kind"`
	// NextTier is the tier hint for the next attempt when Kind is retry.
	NextTier Tier `json:"next_tier,omitempty"`
	// Reason is the machine-readable reason when Kind is abort.
	Reason string `json:"reason,omitempty"`
}

// Retry builds a retry decision with the given tier hint.
func Retry(next Tier) Decision {
	return Decision{Kind: DecisionRetry, NextTier: next}
}

// Accept builds an accept decision.
func Accept() Decision {
	return Decision{Kind: DecisionAccept}
}

// Abort builds an abort decision with a machine-readable reason.
func Abort(reason string) Decision {
	return Decision{Kind: DecisionAbort, Reason: reason}
}
