package tool

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult is a single hit returned by a search provider.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher abstracts the external search provider behind the web_search tool.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// WebSearchOptions configures the web search tool.
type WebSearchOptions struct {
	// MaxResults caps the hits returned per query. Defaults to 5.
	MaxResults int
}

// WebSearchTool exposes a search provider to the model. The provider is
// injected so the tool stays independent of any single search API.
type WebSearchTool struct {
	searcher Searcher
	opts     WebSearchOptions
}

// NewWebSearchTool constructs the search tool around a provider.
func NewWebSearchTool(searcher Searcher, optFns ...func(o *WebSearchOptions)) (*WebSearchTool, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher must not be nil")
	}

	opts := WebSearchOptions{MaxResults: 5}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &WebSearchTool{searcher: searcher, opts: opts}, nil
}

// Name returns the tool identifier.
func (t *WebSearchTool) Name() string { return "web_search" }

// Description returns the tool description shown to the model.
func (t *WebSearchTool) Description() string {
	return "Search the web and return the top results with titles, URLs and snippets."
}

// Parameters returns the JSON schema for the query argument.
func (t *WebSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}
}

// Execute runs the query through the provider and formats the hits.
func (t *WebSearchTool) Execute(execCtx ExecContext, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	results, err := t.searcher.Search(execCtx.Ctx(), query, t.opts.MaxResults)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return "no results found", nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return sb.String(), nil
}
