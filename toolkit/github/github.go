// Package github provides repository tools over the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/httpx"
	"github.com/ordo-ai/agentgraph/tool"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// Options configures the toolkit.
type Options struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client is a minimal GitHub REST client.
type Client struct {
	http   *httpx.Client
	authed bool
}

// NewClient creates a Client. Without a token only read tools work.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{BaseURL: DefaultBaseURL}

	for _, fn := range optFns {
		fn(&opts)
	}

	hc := httpx.New("github", opts.BaseURL, opts.HTTPClient).
		WithHeader("X-GitHub-Api-Version", "2022-11-28")

	if opts.Token != "" {
		hc = hc.WithHeader("Authorization", "Bearer "+opts.Token)
	}

	return &Client{http: hc, authed: opts.Token != ""}
}

// Repository is the subset of repository fields the tools report.
type Repository struct {
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	HTMLURL         string `json:"html_url"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	OpenIssuesCount int    `json:"open_issues_count"`
	DefaultBranch   string `json:"default_branch"`
}

// Issue is the subset of issue fields the tools report.
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// GetRepository fetches owner/repo.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var out Repository
	if err := c.http.Get(ctx, repoPath(owner, repo), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListUserRepositories lists public repositories of user.
func (c *Client) ListUserRepositories(ctx context.Context, user string, limit int) ([]Repository, error) {
	var out []Repository
	err := c.http.Get(ctx, "/users/"+url.PathEscape(user)+"/repos", url.Values{
		"per_page": {strconv.Itoa(clamp(limit))},
		"sort":     {"updated"},
	}, &out)

	return out, err
}

// Star stars owner/repo for the authenticated user.
func (c *Client) Star(ctx context.Context, owner, repo string) error {
	if !c.authed {
		return fmt.Errorf("starring requires a GitHub token")
	}

	return c.http.Do(ctx, http.MethodPut, "/user/starred/"+url.PathEscape(owner)+"/"+url.PathEscape(repo), nil, nil)
}

// ListIssues lists issues of owner/repo, excluding pull requests.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string, limit int) ([]Issue, error) {
	if state == "" {
		state = "open"
	}

	var raw []Issue
	if err := c.http.Get(ctx, repoPath(owner, repo)+"/issues", url.Values{
		"state":    {state},
		"per_page": {strconv.Itoa(clamp(limit))},
	}, &raw); err != nil {
		return nil, err
	}

	out := raw[:0]
	for _, is := range raw {
		if is.PullRequest == nil {
			out = append(out, is)
		}
	}

	return out, nil
}

// CreateIssue opens an issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string) (*Issue, error) {
	if !c.authed {
		return nil, fmt.Errorf("creating issues requires a GitHub token")
	}

	var out Issue
	if err := c.http.Post(ctx, repoPath(owner, repo)+"/issues", map[string]string{"title": title, "body": body}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func clamp(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 100:
		return 100
	default:
		return limit
	}
}

// SplitRepo accepts "owner/repo", a github.com URL, or separate fields.
func SplitRepo(args map[string]any) (owner, repo string, err error) {
	owner, _ = args["owner"].(string)
	repo, _ = args["repo"].(string)

	if owner == "" && strings.Contains(repo, "/") {
		repo = strings.TrimPrefix(repo, "https://github.com/")
		repo = strings.TrimSuffix(repo, ".git")
		owner, repo, _ = strings.Cut(strings.Trim(repo, "/"), "/")
	}

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("owner and repo are required")
	}

	return owner, repo, nil
}

var repoSchema = map[string]any{
	"owner": map[string]any{"type": "string", "description": "Repository owner (user or organization)"},
	"repo":  map[string]any{"type": "string", "description": "Repository name, or owner/repo"},
}

func schema(required []string, extra map[string]any) map[string]any {
	props := map[string]any{}
	for k, v := range repoSchema {
		props[k] = v
	}

	for k, v := range extra {
		props[k] = v
	}

	return map[string]any{"type": "object", "properties": props, "required": required}
}

// Tools returns the GitHub tools bound to c.
func (c *Client) Tools() []tool.Tool {
	getRepo := tool.NewFunctionTool("github_get_repo", "Get details about a GitHub repository", schema([]string{"repo"}, nil),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			owner, repo, err := SplitRepo(args)
			if err != nil {
				return nil, tool.NewToolError("github_get_repo", err.Error(), tool.CodeValidation)
			}

			r, err := c.GetRepository(tc.Context(), owner, repo)
			if err != nil {
				return nil, upstream("github_get_repo", err)
			}

			return fmt.Sprintf("%s: %s\nLanguage: %s\nStars: %d, Forks: %d, Open issues: %d\n%s",
				r.FullName, r.Description, r.Language, r.StargazersCount, r.ForksCount, r.OpenIssuesCount, r.HTMLURL), nil
		})

	listRepos := tool.NewFunctionTool("github_list_user_repos", "List repositories for a GitHub user", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"username": map[string]any{"type": "string", "description": "GitHub username"},
			"limit":    map[string]any{"type": "integer", "description": "Maximum number of repositories"},
		},
		"required": []string{"username"},
	}, func(tc *core.ToolContext, args map[string]any) (any, error) {
		user, _ := args["username"].(string)
		limit, _ := args["limit"].(float64)

		repos, err := c.ListUserRepositories(tc.Context(), user, int(limit))
		if err != nil {
			return nil, upstream("github_list_user_repos", err)
		}

		if len(repos) == 0 {
			return "No repositories found for " + user, nil
		}

		var sb strings.Builder
		for i, r := range repos {
			fmt.Fprintf(&sb, "%d. %s (%d stars) %s\n", i+1, r.FullName, r.StargazersCount, r.Description)
		}

		return sb.String(), nil
	})

	star := tool.NewFunctionTool("github_star_repo", "Star a GitHub repository for the authenticated user", schema([]string{"repo"}, nil),
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			owner, repo, err := SplitRepo(args)
			if err != nil {
				return nil, tool.NewToolError("github_star_repo", err.Error(), tool.CodeValidation)
			}

			if err := c.Star(tc.Context(), owner, repo); err != nil {
				return nil, upstream("github_star_repo", err)
			}

			return fmt.Sprintf("Starred %s/%s", owner, repo), nil
		})

	listIssues := tool.NewFunctionTool("github_list_issues", "List issues of a GitHub repository", schema([]string{"repo"}, map[string]any{
		"state": map[string]any{"type": "string", "enum": []string{"open", "closed", "all"}, "description": "Issue state"},
		"limit": map[string]any{"type": "integer", "description": "Maximum number of issues"},
	}), func(tc *core.ToolContext, args map[string]any) (any, error) {
		owner, repo, err := SplitRepo(args)
		if err != nil {
			return nil, tool.NewToolError("github_list_issues", err.Error(), tool.CodeValidation)
		}

		state, _ := args["state"].(string)
		limit, _ := args["limit"].(float64)

		issues, err := c.ListIssues(tc.Context(), owner, repo, state, int(limit))
		if err != nil {
			return nil, upstream("github_list_issues", err)
		}

		if len(issues) == 0 {
			return fmt.Sprintf("No issues found in %s/%s", owner, repo), nil
		}

		var sb strings.Builder
		for _, is := range issues {
			fmt.Fprintf(&sb, "#%d [%s] %s (by %s)\n", is.Number, is.State, is.Title, is.User.Login)
		}

		return sb.String(), nil
	})

	createIssue := tool.NewFunctionTool("github_create_issue", "Open a new issue in a GitHub repository", schema([]string{"repo", "title"}, map[string]any{
		"title": map[string]any{"type": "string", "description": "Issue title"},
		"body":  map[string]any{"type": "string", "description": "Issue body (markdown)"},
	}), func(tc *core.ToolContext, args map[string]any) (any, error) {
		owner, repo, err := SplitRepo(args)
		if err != nil {
			return nil, tool.NewToolError("github_create_issue", err.Error(), tool.CodeValidation)
		}

		title, _ := args["title"].(string)
		body, _ := args["body"].(string)

		is, err := c.CreateIssue(tc.Context(), owner, repo, title, body)
		if err != nil {
			return nil, upstream("github_create_issue", err)
		}

		return fmt.Sprintf("Created issue #%d: %s", is.Number, is.HTMLURL), nil
	})

	return []tool.Tool{getRepo, listRepos, star, listIssues, createIssue}
}

func upstream(name string, err error) error {
	return tool.NewToolError(name, err.Error(), tool.CodeUpstream)
}
