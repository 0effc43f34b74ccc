// Package composio exposes Composio actions as tools.
//
// Two shapes are offered: a meta toolkit (search actions, then execute one
// by slug) and per-action wrappers whose schemas are fetched from the API.
// Every execution is scoped to the calling user's id, falling back to
// DefaultUserID.
package composio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/httpx"
	"github.com/ordo-ai/agentgraph/tool"
)

// DefaultBaseURL is the public Composio API.
const DefaultBaseURL = "https://backend.composio.dev"

// DefaultUserID scopes calls made without a user on the context.
const DefaultUserID = "default"

// GitHubActions are the actions bound to the GitHub worker.
var GitHubActions = []string{
	"GITHUB_STAR_A_REPOSITORY_FOR_THE_AUTHENTICATED_USER",
	"GITHUB_LIST_REPOSITORIES_FOR_A_USER",
	"GITHUB_GET_A_REPOSITORY",
	"GITHUB_LIST_REPOSITORY_ISSUES",
}

// Options configures the client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the Composio v3 API.
type Client struct {
	http *httpx.Client
}

// NewClient creates a Client. It fails without an API key.
func NewClient(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{BaseURL: DefaultBaseURL}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("composio: api key is required")
	}

	return &Client{
		http: httpx.New("composio", opts.BaseURL, opts.HTTPClient).WithHeader("x-api-key", opts.APIKey),
	}, nil
}

// Action describes one Composio action.
type Action struct {
	Slug            string         `json:"slug"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	InputParameters map[string]any `json:"input_parameters"`
	Toolkit         struct {
		Slug string `json:"slug"`
	} `json:"toolkit"`
}

// Result is the outcome of an execution.
type Result struct {
	Data       any    `json:"data"`
	Successful bool   `json:"successful"`
	Error      string `json:"error"`
}

// Search finds actions matching query, optionally within one toolkit.
func (c *Client) Search(ctx context.Context, query, toolkit string, limit int) ([]Action, error) {
	if limit <= 0 {
		limit = 10
	}

	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if query != "" {
		q.Set("search", query)
	}

	if toolkit != "" {
		q.Set("toolkit_slug", strings.ToLower(toolkit))
	}

	var out struct {
		Items []Action `json:"items"`
	}

	if err := c.http.Get(ctx, "/api/v3/tools", q, &out); err != nil {
		return nil, err
	}

	return out.Items, nil
}

// Action fetches the definition of slug.
func (c *Client) Action(ctx context.Context, slug string) (*Action, error) {
	var out Action
	if err := c.http.Get(ctx, "/api/v3/tools/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}

	if out.Slug == "" {
		out.Slug = slug
	}

	return &out, nil
}

// Execute runs slug with args on behalf of userID.
func (c *Client) Execute(ctx context.Context, slug, userID string, args map[string]any) (*Result, error) {
	if userID == "" {
		userID = DefaultUserID
	}

	if args == nil {
		args = map[string]any{}
	}

	var out Result
	if err := c.http.Post(ctx, "/api/v3/tools/execute/"+url.PathEscape(slug), map[string]any{
		"user_id":   userID,
		"arguments": args,
	}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Tools returns the meta toolkit: composio_search_tools and composio_execute.
func (c *Client) Tools() []tool.Tool {
	search := tool.NewFunctionTool("composio_search_tools",
		"Discover Composio actions by describing what you want to do. Returns action slugs to use with composio_execute.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string", "description": "What the action should do"},
				"toolkit": map[string]any{"type": "string", "description": "Restrict to one app, e.g. github or gmail"},
				"limit":   map[string]any{"type": "integer", "description": "Maximum number of actions"},
			},
			"required": []string{"query"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			toolkit, _ := args["toolkit"].(string)
			limit, _ := args["limit"].(float64)

			actions, err := c.Search(tc.Context(), query, toolkit, int(limit))
			if err != nil {
				return nil, upstream("composio_search_tools", err)
			}

			if len(actions) == 0 {
				return "No actions found for: " + query, nil
			}

			var sb strings.Builder
			for i, a := range actions {
				fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, a.Slug, a.Description)
			}

			return sb.String(), nil
		})

	execute := tool.NewFunctionTool("composio_execute",
		"Execute a Composio action by slug with JSON arguments, on behalf of the current user.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"slug":      map[string]any{"type": "string", "description": "Action slug from composio_search_tools"},
				"arguments": map[string]any{"type": "object", "description": "Action arguments"},
			},
			"required": []string{"slug"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			slug, _ := args["slug"].(string)
			actionArgs, _ := args["arguments"].(map[string]any)

			return c.run(tc, "composio_execute", strings.ToUpper(slug), actionArgs)
		})

	return []tool.Tool{search, execute}
}

// ActionTools resolves slugs and wraps each as a tool named after its
// lower-cased slug.
func (c *Client) ActionTools(ctx context.Context, slugs ...string) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(slugs))

	for _, slug := range slugs {
		a, err := c.Action(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("composio: resolve %s: %w", slug, err)
		}

		tools = append(tools, &actionTool{client: c, action: *a})
	}

	return tools, nil
}

type actionTool struct {
	client *Client
	action Action
}

func (t *actionTool) Name() string { return strings.ToLower(t.action.Slug) }

func (t *actionTool) Description() string {
	if t.action.Description != "" {
		return t.action.Description
	}

	return t.action.Name
}

func (t *actionTool) Parameters() map[string]any {
	if len(t.action.InputParameters) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return t.action.InputParameters
}

func (t *actionTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	return t.client.run(tc, t.Name(), t.action.Slug, args)
}

func (c *Client) run(tc *core.ToolContext, name, slug string, args map[string]any) (any, error) {
	res, err := c.Execute(tc.Context(), slug, tc.UserID(), args)
	if err != nil {
		return nil, upstream(name, err)
	}

	if !res.Successful && res.Error != "" {
		return nil, tool.NewToolError(name, res.Error, tool.CodeUpstream)
	}

	data, err := json.Marshal(res.Data)
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

func upstream(name string, err error) error {
	return tool.NewToolError(name, err.Error(), tool.CodeUpstream)
}
