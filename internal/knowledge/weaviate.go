package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// WeaviateSearcher finds snippets by semantic similarity against a Weaviate
// class. It satisfies Searcher and is selected by the knowledge backend
// config for deployments that already run a vector store.
type WeaviateSearcher struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateSearcher connects to the Weaviate instance at the given URL.
// The class must hold objects with snippetId, title, content, language,
// and source properties.
func NewWeaviateSearcher(url, class string) (*WeaviateSearcher, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}
	if strings.HasPrefix(url, "https://") {
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(url, "https://")
	} else if strings.HasPrefix(url, "http://") {
		cfg.Host = strings.TrimPrefix(url, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateSearcher{client: client, class: class}, nil
}

// Search runs a nearText query and maps results to snippets. Certainty
// becomes Rank, so ordering matches the SQLite backend's best-first
// contract.
func (w *WeaviateSearcher) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	nearText := w.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "snippetId"},
		{Name: "title"},
		{Name: "content"},
		{Name: "language"},
		{Name: "source"},
		{Name: "_additional { certainty }"},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	objects, ok := data[w.class].([]interface{})
	if !ok {
		return nil, nil
	}

	snippets := make([]Snippet, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		snippet := Snippet{
			ID:       getString(m, "snippetId"),
			Title:    getString(m, "title"),
			Content:  getString(m, "content"),
			Language: getString(m, "language"),
			Source:   getString(m, "source"),
		}

		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				snippet.Rank = certainty
			}
		}

		snippets = append(snippets, snippet)
	}

	return snippets, nil
}

// getString pulls a string property out of a decoded GraphQL object.
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
