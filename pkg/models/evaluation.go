package models

// Evaluation is the verdict of one scoring pass over an artifact.
type Evaluation struct {
	// Score grades overall quality from 0 (unusable) to 10 (excellent).
	Score float64 `json:"score"`
	// Issues lists the problems the scorer found.
	Issues []Issue `json:"issues,omitempty"`
	// BuildErrors lists compiler or validation failures verbatim.
	BuildErrors []string `json:"build_errors,omitempty"`
}
