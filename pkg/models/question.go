package models

import "time"

// QuestionStatus represents the lifecycle of a clarifying question.
type QuestionStatus string

const (
	// QuestionPending indicates the question is awaiting an answer.
	QuestionPending QuestionStatus = "pending"
	// QuestionAnswered indicates an answer was recorded. Answered questions
	// are immutable; later answers to the same question are ignored.
	QuestionAnswered QuestionStatus = "answered"
)

// Valid returns true if the status is a known value.
func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionPending, QuestionAnswered:
		return true
	default:
		return false
	}
}

// AnswerSource records where a question's answer came from.
type AnswerSource string

const (
	// AnswerSourceHuman means a human submitted the answer.
	AnswerSourceHuman AnswerSource = "human"
	// AnswerSourceDefault means the gate timed out and the question's
	// default answer was used.
	AnswerSourceDefault AnswerSource = "default"
)

// Question is one clarifying question published to the human channel.
type Question struct {
	// ID is the unique identifier for this question.
	ID string `json:"id"`
	// JobID is the job that asked the question.
	JobID string `json:"job_id"`
	// Prompt is the question text shown to the human.
	Prompt string `json:"prompt"`
	// Choices lists suggested answers, if any.
	Choices []string `json:"choices,omitempty"`
	// Default is the answer used when nobody responds before the timeout.
	// Empty means there is no default and a timeout aborts the job.
	Default string `json:"default,omitempty"`
	// Status is the current lifecycle state.
	Status QuestionStatus `json:"status"`
	// Answer is the recorded answer once Status is answered.
	Answer string `json:"answer,omitempty"`
	// Source records whether the answer came from a human or the default.
	Source AnswerSource `json:"source,omitempty"`
	// CreatedAt is when the question was published.
	CreatedAt time.Time `json:"created_at"`
	// AnsweredAt is when the answer was recorded, if any.
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}
