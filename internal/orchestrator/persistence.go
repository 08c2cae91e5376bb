package orchestrator

import (
	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// Persistence is best-effort: every hook is a no-op without a store,
// and failures are logged rather than surfaced. Jobs run to completion
// on a broken database; only recovery after restart suffers.

func (e *Engine) persistJob(job *models.Job) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveJob(job); err != nil {
		e.logger.Warn("failed to persist job",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

func (e *Engine) persistStatus(jobID string, status models.JobStatus, reason string) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateJobStatus(jobID, status, reason); err != nil {
		e.logger.Warn("failed to persist job status",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (e *Engine) persistFinish(jobID string, status models.JobStatus, result *models.JobResult) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateJobStatus(jobID, status, result.Reason); err != nil {
		e.logger.Warn("failed to persist job status",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	if err := e.store.SaveResult(jobID, result); err != nil {
		e.logger.Warn("failed to persist job result",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}

func (e *Engine) persistAttempt(jobID string, attempt *models.Attempt) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveAttempt(jobID, attempt); err != nil {
		e.logger.Warn("failed to persist attempt",
			zap.String("job_id", jobID),
			zap.Int("attempt", attempt.Number),
			zap.Error(err))
	}
}

func (e *Engine) persistQuestion(q *models.Question) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveQuestion(q); err != nil {
		e.logger.Warn("failed to persist question",
			zap.String("job_id", q.JobID),
			zap.String("question_id", q.ID),
			zap.Error(err))
	}
}

func (e *Engine) persistQuestionUpdate(q *models.Question) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateQuestion(q); err != nil {
		e.logger.Warn("failed to persist question update",
			zap.String("job_id", q.JobID),
			zap.String("question_id", q.ID),
			zap.Error(err))
	}
}
