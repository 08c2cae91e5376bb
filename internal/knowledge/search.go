package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

// Search performs a full-text search over snippet titles and contents.
// Results come back best match first with Rank populated from bm25
// (negated so higher is better). Queries are free text: task descriptions
// go in as-is and are tokenized here.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sn.id, sn.title, sn.content, sn.language, sn.source, sn.created_at,
			   fts.rank
		FROM snippets sn
		JOIN snippets_fts fts ON sn.rowid = fts.rowid
		WHERE snippets_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search snippets: %w", err)
	}
	defer rows.Close()

	var snippets []Snippet
	for rows.Next() {
		var (
			snippet   Snippet
			language  sql.NullString
			source    sql.NullString
			createdAt string
			rank      float64
		)
		err := rows.Scan(&snippet.ID, &snippet.Title, &snippet.Content,
			&language, &source, &createdAt, &rank)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}

		snippet.Language = language.String
		snippet.Source = source.String
		ca, _ := parseTime(createdAt)
		snippet.CreatedAt = ca
		// bm25 rank is negative, more negative means a better match.
		snippet.Rank = -rank

		snippets = append(snippets, snippet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}

	return snippets, nil
}

// buildMatchQuery turns free text into an FTS5 MATCH expression. Task
// descriptions contain punctuation that FTS5 treats as syntax, so only
// word tokens survive, joined with OR to favor recall over precision.
func buildMatchQuery(query string) string {
	tokens := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		terms = append(terms, `"`+tok+`"`)
	}

	return strings.Join(terms, " OR ")
}
