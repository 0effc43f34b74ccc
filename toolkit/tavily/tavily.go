// Package tavily provides web search and page extraction tools backed by
// the Tavily API.
package tavily

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/httpx"
	"github.com/ordo-ai/agentgraph/tool"
)

// DefaultBaseURL is the public Tavily endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// Options configures the toolkit.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	// MaxResults is used when the model does not pass maxResults.
	MaxResults int
}

// Client talks to the Tavily API.
type Client struct {
	http       *httpx.Client
	apiKey     string
	maxResults int
}

// NewClient creates a Client. It fails without an API key.
func NewClient(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		BaseURL:    DefaultBaseURL,
		MaxResults: 5,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("tavily: api key is required")
	}

	return &Client{
		http:       httpx.New("tavily", opts.BaseURL, opts.HTTPClient),
		apiKey:     opts.APIKey,
		maxResults: opts.MaxResults,
	}, nil
}

// SearchResult is one search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResponse is the /search response.
type SearchResponse struct {
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// Search runs a web search.
func (c *Client) Search(ctx context.Context, query, depth string, maxResults int) (*SearchResponse, error) {
	if depth == "" {
		depth = "basic"
	}

	if maxResults <= 0 {
		maxResults = c.maxResults
	}

	var out SearchResponse
	err := c.http.Post(ctx, "/search", map[string]any{
		"api_key":        c.apiKey,
		"query":          query,
		"search_depth":   depth,
		"max_results":    maxResults,
		"include_answer": true,
		"include_images": false,
	}, &out)

	return &out, err
}

// ExtractResult is the content of one URL.
type ExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// Extract fetches clean page content for urls.
func (c *Client) Extract(ctx context.Context, urls []string) ([]ExtractResult, error) {
	var out struct {
		Results []ExtractResult `json:"results"`
	}

	err := c.http.Post(ctx, "/extract", map[string]any{
		"api_key": c.apiKey,
		"urls":    urls,
	}, &out)

	return out.Results, err
}

// FormatSearch renders a response the way the agent reads it.
func FormatSearch(r *SearchResponse) string {
	var sb strings.Builder

	if r.Answer != "" {
		fmt.Fprintf(&sb, "Answer: %s\n\nSources:\n", r.Answer)
	} else {
		sb.WriteString("Search Results:\n")
	}

	for i, res := range r.Results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n\n", i+1, res.Title, res.URL, res.Content)
	}

	return sb.String()
}

// FormatExtract renders extracted pages.
func FormatExtract(results []ExtractResult) string {
	var sb strings.Builder

	sb.WriteString("Extracted Content:\n\n")

	for i, res := range results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n\n", i+1, res.URL, res.RawContent)
	}

	return sb.String()
}

type searchArgs struct {
	Query       string `json:"query" description:"The search query"`
	SearchDepth string `json:"searchDepth,omitempty" description:"Search depth" enum:"basic,advanced"`
	MaxResults  int    `json:"maxResults,omitempty" description:"Maximum number of results"`
}

// Tools returns tavily_search and tavily_extract bound to c.
func (c *Client) Tools() []tool.Tool {
	search := tool.NewFunctionToolFromStruct(
		"tavily_search",
		"Search the web using Tavily API. Returns relevant results with content and sources.",
		searchArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			depth, _ := args["searchDepth"].(string)
			limit, _ := args["maxResults"].(float64)

			resp, err := c.Search(tc.Context(), query, depth, int(limit))
			if err != nil {
				return nil, upstream("tavily_search", err)
			}

			return FormatSearch(resp), nil
		},
	)

	extract := tool.NewFunctionTool(
		"tavily_extract",
		"Extract clean content from specific URLs using Tavily API.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"urls": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Array of URLs to extract content from",
				},
			},
			"required": []string{"urls"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			raw, _ := args["urls"].([]any)

			urls := make([]string, 0, len(raw))
			for _, u := range raw {
				if s, ok := u.(string); ok && s != "" {
					urls = append(urls, s)
				}
			}

			if len(urls) == 0 {
				return nil, tool.NewToolError("tavily_extract", "at least one url is required", tool.CodeValidation)
			}

			results, err := c.Extract(tc.Context(), urls)
			if err != nil {
				return nil, upstream("tavily_extract", err)
			}

			return FormatExtract(results), nil
		},
	)

	return []tool.Tool{search, extract}
}

func upstream(name string, err error) error {
	return tool.NewToolError(name, err.Error(), tool.CodeUpstream)
}
