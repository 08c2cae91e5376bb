package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// Job CRUD operations. The engine calls the Save/Update methods through
// its StateStore hooks; the CLI reads back through the Get/List methods.

// SaveJob inserts a job row, or replaces it if the id already exists.
func (db *DB) SaveJob(job *models.Job) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO jobs (id, task, language, status, max_iterations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, job.ID, job.Task, job.Language, string(job.Status), job.MaxIterations, formatTime(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// UpdateJobStatus moves a job to the given status. Terminal statuses
// also stamp finished_at.
func (db *DB) UpdateJobStatus(jobID string, status models.JobStatus, reason string) error {
	var err error
	if status.Terminal() {
		_, err = db.Exec(`
			UPDATE jobs SET status = ?, reason = ?, finished_at = ? WHERE id = ?
		`, string(status), reason, formatTime(time.Now()), jobID)
	} else {
		_, err = db.Exec(`
			UPDATE jobs SET status = ?, reason = ? WHERE id = ?
		`, string(status), reason, jobID)
	}
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// SaveResult records a job's terminal result.
func (db *DB) SaveResult(jobID string, result *models.JobResult) error {
	if result == nil {
		return nil
	}
	_, err := db.Exec(`
		UPDATE jobs
		SET result_artifact = ?, result_attempt = ?, result_model = ?, result_score = ?, reason = ?
		WHERE id = ?
	`, result.Artifact, result.AttemptNumber, result.Model, result.Score, result.Reason, jobID)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id. Returns nil without error when the id
// is unknown.
func (db *DB) GetJob(id string) (*models.Job, error) {
	row := db.QueryRow(`
		SELECT id, task, language, status, max_iterations, reason,
		       result_artifact, result_attempt, result_model, result_score, created_at
		FROM jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
// A nil status returns every job.
func (db *DB) ListJobs(status *models.JobStatus, limit int) ([]models.Job, error) {
	query := `
		SELECT id, task, language, status, max_iterations, reason,
		       result_artifact, result_attempt, result_model, result_score, created_at
		FROM jobs
	`
	var args []any
	if status != nil {
		query += " WHERE status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// SaveAttempt appends one attempt row for a job. Issues are stored as
// JSON; build errors as newline-joined text.
func (db *DB) SaveAttempt(jobID string, attempt *models.Attempt) error {
	issues, err := json.Marshal(attempt.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO attempts (job_id, number, tier, model, artifact, score, issues, build_errors, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, jobID, attempt.Number, string(attempt.Tier), attempt.Model, attempt.Artifact,
		attempt.Score, string(issues), strings.Join(attempt.BuildErrors, "\n"),
		attempt.Summary, formatTime(attempt.CreatedAt))
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a job's attempts in sequence order.
func (db *DB) ListAttempts(jobID string) ([]models.Attempt, error) {
	rows, err := db.Query(`
		SELECT number, tier, model, artifact, score, issues, build_errors, summary, created_at
		FROM attempts WHERE job_id = ? ORDER BY number ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var (
			a           models.Attempt
			tier        string
			issues      string
			buildErrors string
			createdAt   string
		)
		if err := rows.Scan(&a.Number, &tier, &a.Model, &a.Artifact, &a.Score,
			&issues, &buildErrors, &a.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Tier = models.Tier(tier)
		if issues != "" && issues != "null" {
			if err := json.Unmarshal([]byte(issues), &a.Issues); err != nil {
				return nil, fmt.Errorf("unmarshal issues: %w", err)
			}
		}
		if buildErrors != "" {
			a.BuildErrors = strings.Split(buildErrors, "\n")
		}
		a.CreatedAt, _ = parseTime(createdAt)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// SaveQuestion inserts a published question.
func (db *DB) SaveQuestion(q *models.Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return fmt.Errorf("marshal choices: %w", err)
	}
	_, err = db.Exec(`
		INSERT OR REPLACE INTO questions (id, job_id, prompt, choices, default_answer, status, answer, source, created_at, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.JobID, q.Prompt, string(choices), q.Default, string(q.Status),
		q.Answer, string(q.Source), formatTime(q.CreatedAt), nullableTime(q.AnsweredAt))
	if err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

// UpdateQuestion records a question's answer.
func (db *DB) UpdateQuestion(q *models.Question) error {
	_, err := db.Exec(`
		UPDATE questions SET status = ?, answer = ?, source = ?, answered_at = ? WHERE id = ?
	`, string(q.Status), q.Answer, string(q.Source), nullableTime(q.AnsweredAt), q.ID)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// ListQuestions returns a job's questions oldest first.
func (db *DB) ListQuestions(jobID string) ([]models.Question, error) {
	rows, err := db.Query(`
		SELECT id, job_id, prompt, choices, default_answer, status, answer, source, created_at, answered_at
		FROM questions WHERE job_id = ? ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var (
			q          models.Question
			choices    string
			status     string
			source     string
			createdAt  string
			answeredAt sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.JobID, &q.Prompt, &choices, &q.Default,
			&status, &q.Answer, &source, &createdAt, &answeredAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if choices != "" && choices != "null" {
			if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
				return nil, fmt.Errorf("unmarshal choices: %w", err)
			}
		}
		q.Status = models.QuestionStatus(status)
		q.Source = models.AnswerSource(source)
		q.CreatedAt, _ = parseTime(createdAt)
		q.AnsweredAt = parseNullableTime(answeredAt)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job       models.Job
		status    string
		reason    sql.NullString
		artifact  sql.NullString
		attempt   int
		model     sql.NullString
		score     float64
		createdAt string
	)
	err := row.Scan(&job.ID, &job.Task, &job.Language, &status, &job.MaxIterations,
		&reason, &artifact, &attempt, &model, &score, &createdAt)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.CreatedAt, _ = parseTime(createdAt)
	if job.Status.Terminal() {
		job.Result = &models.JobResult{
			Artifact:      artifact.String,
			AttemptNumber: attempt,
			Model:         model.String,
			Score:         score,
			Reason:        reason.String,
		}
	}
	return &job, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
