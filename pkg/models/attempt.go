package models

import "time"

// IssueSeverity classifies how serious a reported issue is.
type IssueSeverity string

const (
	// SeverityError is a defect that must be fixed.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is a likely problem worth addressing.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInfo is a stylistic or informational note.
	SeverityInfo IssueSeverity = "info"
)

// Valid returns true if the severity is a known value.
func (s IssueSeverity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Issue is a single problem reported by validation.
type Issue struct {
	// Severity classifies the issue.
	Severity IssueSeverity `json:"severity"`
	// Location identifies where in the artifact the issue sits, if known.
	Location string `json:"location,omitempty"`
	// Message describes the issue.
	Message string `json:"message"`
	// SuggestedFix proposes a remedy, if the validator offered one.
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// Attempt is one immutable generate-then-validate cycle within a job.
// Attempts are appended in order and never mutated after creation.
type Attempt struct {
	// Number is the 1-based sequence number within the job.
	Number int `json:"number"`
	// Tier is the cost tier the generation ran at.
	Tier Tier `json:"tier"`
	// Model is the concrete model that served the generation.
	Model string `json:"model"`
	// Artifact is the generated output for this attempt.
	Artifact string `json:"artifact,omitempty"`
	// Score is the validation score in [0,10].
	Score float64 `json:"score"`
	// Issues lists the problems validation reported.
	Issues []Issue `json:"issues,omitempty"`
	// BuildErrors carries raw build or invocation error text, if any.
	BuildErrors []string `json:"build_errors,omitempty"`
	// Summary is a short free-text description of the attempt.
	Summary string `json:"summary,omitempty"`
	// CreatedAt is when the attempt was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the attempt. Snapshots use it so external
// readers never share the issues slice with the owning job goroutine.
func (a Attempt) Clone() Attempt {
	c := a
	if len(a.Issues) > 0 {
		c.Issues = make([]Issue, len(a.Issues))
		copy(c.Issues, a.Issues)
	}
	if len(a.BuildErrors) > 0 {
		c.BuildErrors = make([]string, len(a.BuildErrors))
		copy(c.BuildErrors, a.BuildErrors)
	}
	return c
}
