// Package research grounds generation requests with web search results.
package research

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// DefaultResults is the number of search hits requested per query.
const DefaultResults = 5

// Snippet is one search hit.
type Snippet struct {
	Title   string
	Link    string
	Snippet string
}

// Searcher runs a web query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
}

// Researcher searches the web through a Programmable Search Engine.
type Researcher struct {
	svc     *customsearch.Service
	cx      string
	results int64
}

// NewResearcher creates a Researcher for the engine cx. Extra options are
// passed to the search service and are mostly useful to point it at a test server.
func NewResearcher(ctx context.Context, apiKey, cx string, results int, opts ...option.ClientOption) (*Researcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine ID are required")
	}
	if results <= 0 || results > 10 {
		results = DefaultResults
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Researcher{svc: svc, cx: cx, results: int64(results)}, nil
}

// Search returns the top hits for query.
func (r *Researcher) Search(ctx context.Context, query string) ([]Snippet, error) {
	resp, err := r.svc.Cse.List().Cx(r.cx).Q(query).Num(r.results).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	snippets := make([]Snippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		snippets = append(snippets, Snippet{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Snippet: strings.TrimSpace(item.Snippet),
		})
	}
	return snippets, nil
}

// FormatSnippets renders hits as a bulleted block for a system instruction.
func FormatSnippets(snippets []Snippet) string {
	var sb strings.Builder
	sb.WriteString("Web search results (use as background, they may be incomplete):\n")
	for _, s := range snippets {
		sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", s.Title, s.Snippet, s.Link))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
