package orchestrator

import (
	"context"

	"github.com/ShayCichocki/anvil/internal/generate"
	"github.com/ShayCichocki/anvil/internal/knowledge"
	"github.com/ShayCichocki/anvil/pkg/models"
)

// Generator produces one artifact per call at the requested cost tier.
type Generator interface {
	Generate(ctx context.Context, prompt string, tier models.Tier) (generate.Generation, error)
}

// Scorer grades an artifact and reports issues and build errors.
type Scorer interface {
	Score(ctx context.Context, artifact, language string) (models.Evaluation, error)
}

// Searcher retrieves ranked knowledge snippets for prompt assembly.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Snippet, error)
}

// AmbiguityDetector decides whether a task needs a clarifying question
// before the first generation attempt. A nil question means the task
// is unambiguous.
type AmbiguityDetector interface {
	Detect(task string) *models.Question
}

// StateStore persists job lifecycle changes. All methods are called
// from job goroutines; implementations must be safe for concurrent
// use. The engine treats every method as best-effort: persistence
// failures are logged, never fatal.
type StateStore interface {
	SaveJob(job *models.Job) error
	UpdateJobStatus(jobID string, status models.JobStatus, reason string) error
	SaveResult(jobID string, result *models.JobResult) error
	SaveAttempt(jobID string, attempt *models.Attempt) error
	SaveQuestion(q *models.Question) error
	UpdateQuestion(q *models.Question) error
}
