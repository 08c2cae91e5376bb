package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed snippet storage with full-text search.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// DBPath returns the default snippet database path under the data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "knowledge.db")
}

// NewStore opens the snippet database at the given path, creating parent
// directories as needed.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent readers while a job's loop writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{
		db:     conn,
		dbPath: dbPath,
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// Migrate creates the necessary tables and indexes if they don't exist.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snippet_schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM snippet_schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Snippets},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return err
		}

		if _, err := tx.Exec("INSERT INTO snippet_schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

const migrationV1Snippets = `
CREATE TABLE IF NOT EXISTS snippets (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	language TEXT,
	source TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snippets_language ON snippets(language);
CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);

-- Full-text search on title and content
CREATE VIRTUAL TABLE IF NOT EXISTS snippets_fts USING fts5(
	title,
	content,
	content='snippets',
	content_rowid='rowid'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS snippets_ai AFTER INSERT ON snippets BEGIN
	INSERT INTO snippets_fts(rowid, title, content)
	VALUES (NEW.rowid, NEW.title, NEW.content);
END;

CREATE TRIGGER IF NOT EXISTS snippets_ad AFTER DELETE ON snippets BEGIN
	INSERT INTO snippets_fts(snippets_fts, rowid, title, content)
	VALUES ('delete', OLD.rowid, OLD.title, OLD.content);
END;

CREATE TRIGGER IF NOT EXISTS snippets_au AFTER UPDATE ON snippets BEGIN
	INSERT INTO snippets_fts(snippets_fts, rowid, title, content)
	VALUES ('delete', OLD.rowid, OLD.title, OLD.content);
	INSERT INTO snippets_fts(rowid, title, content)
	VALUES (NEW.rowid, NEW.title, NEW.content);
END;
`

// Add stores a new snippet and returns its generated ID.
func (s *Store) Add(ctx context.Context, snippet Snippet) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snippet.ID == "" {
		snippet.ID = uuid.New().String()
	}
	if snippet.CreatedAt.IsZero() {
		snippet.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snippets (id, title, content, language, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snippet.ID, snippet.Title, snippet.Content,
		nullString(snippet.Language), nullString(snippet.Source), formatTime(snippet.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert snippet: %w", err)
	}

	return snippet.ID, nil
}

// Get returns a snippet by ID.
func (s *Store) Get(ctx context.Context, id string) (*Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, language, source, created_at
		FROM snippets WHERE id = ?
	`, id)

	snippet, err := scanSnippet(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snippet %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snippet: %w", err)
	}
	return snippet, nil
}

// List returns the most recent snippets up to the specified limit.
func (s *Store) List(ctx context.Context, limit int) ([]Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, language, source, created_at
		FROM snippets
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	return scanSnippets(rows)
}

// Delete removes a snippet by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM snippets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("snippet %s not found", id)
	}
	return nil
}

// Count returns the number of stored snippets.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snippets").Scan(&count); err != nil {
		return 0, fmt.Errorf("count snippets: %w", err)
	}
	return count, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSnippet scans a single snippet row.
func scanSnippet(row rowScanner) (*Snippet, error) {
	var (
		snippet   Snippet
		language  sql.NullString
		source    sql.NullString
		createdAt string
	)

	err := row.Scan(&snippet.ID, &snippet.Title, &snippet.Content, &language, &source, &createdAt)
	if err != nil {
		return nil, err
	}

	snippet.Language = language.String
	snippet.Source = source.String
	ca, _ := parseTime(createdAt)
	snippet.CreatedAt = ca

	return &snippet, nil
}

// scanSnippets scans rows into a slice of snippets.
func scanSnippets(rows *sql.Rows) ([]Snippet, error) {
	var snippets []Snippet

	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		snippets = append(snippets, *snippet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}

	return snippets, nil
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullString converts a string to sql.NullString, treating empty as null.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
