// Package knowledge provides the snippet store that feeds prompt assembly.
// Snippets are small, titled pieces of reference material (code fragments,
// conventions, prior solutions) retrieved by relevance to a job's task.
package knowledge

import (
	"context"
	"time"
)

// Snippet is one retrievable piece of reference material.
type Snippet struct {
	// ID is the unique identifier for this snippet.
	ID string
	// Title is a short human-readable name.
	Title string
	// Content is the snippet body included in prompts.
	Content string
	// Language tags the snippet's language, if any.
	Language string
	// Source records where the snippet came from (file, URL, manual).
	Source string
	// Rank is the search relevance, higher is better. Zero outside search
	// results.
	Rank float64
	// CreatedAt is when the snippet was stored.
	CreatedAt time.Time
}

// Searcher finds snippets relevant to a query, best match first.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Snippet, error)
}
