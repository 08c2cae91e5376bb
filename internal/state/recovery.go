package state

import (
	"fmt"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// ReasonInterrupted marks jobs whose process died mid-loop.
const ReasonInterrupted = "interrupted"

// RecoverInterrupted marks jobs left pending or running by a previous
// process as failed. Job loops live only in memory, so any non-terminal
// row found at startup belongs to a process that is gone. Returns how
// many jobs were marked.
func (db *DB) RecoverInterrupted() (int64, error) {
	result, err := db.Exec(`
		UPDATE jobs SET status = ?, reason = ?
		WHERE status IN (?, ?)
	`, string(models.JobStatusFailed), ReasonInterrupted,
		string(models.JobStatusPending), string(models.JobStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("recover interrupted jobs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
