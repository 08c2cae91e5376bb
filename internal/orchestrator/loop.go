package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// runJob drives one job from pending to a terminal state. It is the
// only writer of the job's status and history.
func (e *Engine) runJob(ctx context.Context, j *job) {
	defer e.wg.Done()

	data := j.snapshot()
	log := e.logger.With(zap.String("job_id", data.ID))

	if err := e.sem.Acquire(ctx, 1); err != nil {
		log.Info("job cancelled while queued")
		e.finishCancelled(j)
		return
	}
	defer e.sem.Release(1)

	j.markRunning()
	e.persistStatus(data.ID, models.JobStatusRunning, "")
	e.metrics.JobsStarted.Inc()
	e.metrics.RunningJobs.Inc()
	defer e.metrics.RunningJobs.Dec()
	e.emitter.Emit(Event{Type: EventJobStarted, JobID: data.ID})
	log.Info("job started", zap.Int("max_iterations", data.MaxIterations))

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			e.finishCancelled(j)
			return
		}

		// Ambiguity is resolved once, before anything has been
		// generated. Later iterations inherit the recorded answer
		// through the prompt overview.
		if attempt == 1 && e.detector != nil {
			if q := e.detector.Detect(data.Task); q != nil {
				q.JobID = data.ID
				if !e.askQuestion(ctx, j, q, log) {
					return
				}
			}
		}

		tier := j.currentTier()
		assembled := e.assemblePrompt(ctx, j)
		if len(assembled.Dropped) > 0 {
			log.Debug("prompt sections dropped for budget",
				zap.Int("attempt", attempt),
				zap.Strings("dropped", assembled.Dropped))
		}

		e.metrics.Attempts.WithLabelValues(string(tier)).Inc()
		e.emitter.Emit(Event{Type: EventAttemptStarted, JobID: data.ID, Attempt: attempt, Tier: tier})

		record := e.executeAttempt(ctx, data, attempt, tier, assembled.Prompt)
		j.history.Append(record)
		e.persistAttempt(data.ID, &record)
		e.metrics.AttemptScores.Observe(record.Score)
		e.emitter.Emit(Event{
			Type:    EventAttemptScored,
			JobID:   data.ID,
			Attempt: attempt,
			Tier:    tier,
			Score:   record.Score,
			Message: record.Summary,
		})
		log.Info("attempt scored",
			zap.Int("attempt", attempt),
			zap.String("tier", string(tier)),
			zap.Float64("score", record.Score))

		decision := e.policy.Decide(j.history.Snapshot(), data.MaxIterations)
		switch decision.Kind {
		case models.DecisionAccept:
			e.finishCompleted(j, record)
			return
		case models.DecisionAbort:
			log.Warn("job aborted", zap.String("reason", decision.Reason))
			e.finishFailed(j, decision.Reason)
			return
		case models.DecisionRetry:
			if decision.NextTier.Rank() > tier.Rank() {
				j.setTier(decision.NextTier)
				e.metrics.Escalations.Inc()
				e.emitter.Emit(Event{
					Type:    EventEscalated,
					JobID:   data.ID,
					Attempt: attempt,
					Tier:    decision.NextTier,
				})
				log.Info("escalating tier",
					zap.String("from", string(tier)),
					zap.String("to", string(decision.NextTier)))
			}
		}
	}
}

// executeAttempt runs one generate-then-score cycle. Generation and
// validation failures become zero-score attempts carrying the error
// text, never loop failures.
func (e *Engine) executeAttempt(ctx context.Context, data models.Job, number int, tier models.Tier, prompt string) models.Attempt {
	record := models.Attempt{
		Number:    number,
		Tier:      tier,
		CreatedAt: time.Now(),
	}

	gen, err := e.gen.Generate(ctx, prompt, tier)
	if err != nil {
		record.BuildErrors = []string{err.Error()}
		record.Summary = "generation failed"
		return record
	}
	record.Artifact = gen.Artifact
	record.Model = gen.Model

	eval, err := e.scorer.Score(ctx, gen.Artifact, data.Language)
	if err != nil {
		record.BuildErrors = []string{err.Error()}
		record.Summary = "validation failed"
		return record
	}
	record.Score = eval.Score
	record.Issues = eval.Issues
	record.BuildErrors = eval.BuildErrors
	record.Summary = summarizeEvaluation(eval)
	return record
}

func summarizeEvaluation(eval models.Evaluation) string {
	switch {
	case len(eval.BuildErrors) > 0:
		return fmt.Sprintf("score %.1f, %d issues, %d build errors", eval.Score, len(eval.Issues), len(eval.BuildErrors))
	case len(eval.Issues) > 0:
		return fmt.Sprintf("score %.1f, %d issues", eval.Score, len(eval.Issues))
	default:
		return fmt.Sprintf("score %.1f, no issues", eval.Score)
	}
}

// askQuestion publishes a clarifying question and blocks on the gate.
// It returns false when the job finished inside, either aborted on an
// unanswerable question or cancelled while waiting.
func (e *Engine) askQuestion(ctx context.Context, j *job, q *models.Question, log *zap.Logger) bool {
	timeout := e.cfg.Gate.AnswerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	e.metrics.QuestionsAsked.Inc()
	e.persistQuestion(q)
	published := *q
	e.emitter.Emit(Event{Type: EventQuestionAsked, JobID: q.JobID, Question: &published})
	log.Info("clarifying question published",
		zap.String("question_id", q.ID),
		zap.String("prompt", q.Prompt))

	answer, source, err := e.gate.Ask(ctx, q, timeout)
	if err != nil {
		if errors.Is(err, ErrNoAnswer) {
			e.metrics.QuestionTimeouts.Inc()
			log.Warn("question timed out with no default, aborting",
				zap.String("question_id", q.ID))
			e.finishFailed(j, ReasonNoAnswer)
			return false
		}
		e.finishCancelled(j)
		return false
	}

	if source == models.AnswerSourceDefault {
		e.metrics.QuestionTimeouts.Inc()
		log.Info("question timed out, default answer used",
			zap.String("question_id", q.ID),
			zap.String("answer", answer))
	} else {
		log.Info("question answered",
			zap.String("question_id", q.ID))
	}

	e.persistQuestionUpdate(q)
	resolved := *q
	e.emitter.Emit(Event{
		Type:     EventQuestionAnswered,
		JobID:    q.JobID,
		Message:  answer,
		Question: &resolved,
	})
	return true
}

// finishCompleted ends a job with the accepted attempt as its result.
func (e *Engine) finishCompleted(j *job, accepted models.Attempt) {
	result := &models.JobResult{
		Artifact:      accepted.Artifact,
		AttemptNumber: accepted.Number,
		Model:         accepted.Model,
		Score:         accepted.Score,
		Reason:        ReasonAccepted,
	}
	j.finish(models.JobStatusCompleted, result)
	data := j.snapshot()

	e.persistFinish(data.ID, models.JobStatusCompleted, result)
	e.metrics.JobsFinished.WithLabelValues(string(models.JobStatusCompleted)).Inc()
	e.emitter.Emit(Event{
		Type:    EventJobCompleted,
		JobID:   data.ID,
		Attempt: accepted.Number,
		Score:   accepted.Score,
	})
	e.logger.Info("job completed",
		zap.String("job_id", data.ID),
		zap.Int("attempt", accepted.Number),
		zap.Float64("score", accepted.Score))
}

// finishFailed ends a job without an accepted result, attaching the
// best attempt so far for salvage.
func (e *Engine) finishFailed(j *job, reason string) {
	result := &models.JobResult{Reason: reason}
	if best, ok := j.history.Best(); ok {
		result.Artifact = best.Artifact
		result.AttemptNumber = best.Number
		result.Model = best.Model
		result.Score = best.Score
	}
	j.finish(models.JobStatusFailed, result)
	data := j.snapshot()

	e.persistFinish(data.ID, models.JobStatusFailed, result)
	e.metrics.JobsFinished.WithLabelValues(string(models.JobStatusFailed)).Inc()
	e.emitter.Emit(Event{
		Type:    EventJobFailed,
		JobID:   data.ID,
		Attempt: result.AttemptNumber,
		Score:   result.Score,
		Message: reason,
	})
	e.logger.Warn("job failed",
		zap.String("job_id", data.ID),
		zap.String("reason", reason),
		zap.Float64("best_score", result.Score))
}

// finishCancelled ends a cancelled job, attaching the best attempt so
// far if any exist.
func (e *Engine) finishCancelled(j *job) {
	result := &models.JobResult{Reason: ReasonCancelled}
	if best, ok := j.history.Best(); ok {
		result.Artifact = best.Artifact
		result.AttemptNumber = best.Number
		result.Model = best.Model
		result.Score = best.Score
	}
	j.finish(models.JobStatusCancelled, result)
	data := j.snapshot()

	e.persistFinish(data.ID, models.JobStatusCancelled, result)
	e.metrics.JobsFinished.WithLabelValues(string(models.JobStatusCancelled)).Inc()
	e.emitter.Emit(Event{
		Type:    EventJobCancelled,
		JobID:   data.ID,
		Message: ReasonCancelled,
	})
	e.logger.Info("job cancelled", zap.String("job_id", data.ID))
}
