// Package state provides SQLite-based persistence for anvil jobs.
// Every lifecycle change the engine reports (job creation, status
// moves, attempts, questions) lands here so that job history survives
// restarts until explicitly cleaned up.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with anvil-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DBPath returns the job database path under the data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "anvil.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Jobs},
		{2, migrationV2Attempts},
		{3, migrationV3Questions},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Jobs = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	task TEXT NOT NULL,
	language TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	max_iterations INTEGER NOT NULL DEFAULT 10,
	reason TEXT,
	result_artifact TEXT,
	result_attempt INTEGER NOT NULL DEFAULT 0,
	result_model TEXT,
	result_score REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

const migrationV2Attempts = `
CREATE TABLE IF NOT EXISTS attempts (
	job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	number INTEGER NOT NULL,
	tier TEXT NOT NULL,
	model TEXT,
	artifact TEXT,
	score REAL NOT NULL DEFAULT 0,
	issues TEXT,
	build_errors TEXT,
	summary TEXT,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (job_id, number)
);
`

const migrationV3Questions = `
CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	prompt TEXT NOT NULL,
	choices TEXT,
	default_answer TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	answer TEXT,
	source TEXT,
	created_at DATETIME NOT NULL,
	answered_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_questions_job_id ON questions(job_id);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

// PurgeTerminalJobs deletes terminal jobs that finished before the
// retention window, along with their attempts and questions. A
// non-positive retention deletes every terminal job. Returns the
// number of jobs deleted.
func (db *DB) PurgeTerminalJobs(olderThan time.Duration) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if olderThan > 0 {
		cutoff := formatTime(time.Now().Add(-olderThan))
		result, err = db.Exec(`
			DELETE FROM jobs
			WHERE status IN ('completed', 'failed', 'cancelled')
			  AND finished_at IS NOT NULL AND finished_at < ?
		`, cutoff)
	} else {
		result, err = db.Exec(`
			DELETE FROM jobs
			WHERE status IN ('completed', 'failed', 'cancelled')
		`)
	}
	if err != nil {
		return 0, fmt.Errorf("purge terminal jobs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return count, nil
}
