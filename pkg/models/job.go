package models

import "time"

// JobStatus represents the current state of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job has been created but not started.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the attempt loop is executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job finished with an accepted result.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job ended without an accepted result.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled by the caller.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is final and can never change again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Job represents one code-generation job owned by the registry.
type Job struct {
	// ID is the unique identifier for this job.
	ID string `json:"id"`
	// Task is the natural-language description of what to generate.
	Task string `json:"task"`
	// Language is the target language for the generated artifact.
	Language string `json:"language"`
	// Status is the current state of the job.
	Status JobStatus `json:"status"`
	// MaxIterations bounds the attempt loop for this job.
	MaxIterations int `json:"max_iterations"`
	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`
	// Result holds the terminal outcome once the job finishes.
	Result *JobResult `json:"result,omitempty"`
}

// JobResult is the terminal outcome of a job. For completed jobs it carries
// the accepted artifact; for failed jobs the best-effort artifact plus a
// machine-readable reason.
type JobResult struct {
	// Artifact is the generated output, possibly empty on early failure.
	Artifact string `json:"artifact,omitempty"`
	// AttemptNumber is the attempt the artifact came from.
	AttemptNumber int `json:"attempt_number"`
	// Model is the model that produced the artifact.
	Model string `json:"model,omitempty"`
	// Score is the artifact's validation score.
	Score float64 `json:"score"`
	// Reason is the machine-readable termination reason for non-accepted ends.
	Reason string `json:"reason,omitempty"`
}
