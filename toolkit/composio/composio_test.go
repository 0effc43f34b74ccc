package composio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/tool"
)

const starSlug = "GITHUB_STAR_A_REPOSITORY_FOR_THE_AUTHENTICATED_USER"

func newServer(t *testing.T, users chan<- string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v3/tools", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "star", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"items":[{"slug":"` + starSlug + `","description":"Star a repository"}]}`))
	})

	mux.HandleFunc("GET /api/v3/tools/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("slug") != starSlug {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"tool not found"}}`))

			return
		}

		_, _ = w.Write([]byte(`{"slug":"` + starSlug + `","description":"Star a repository","input_parameters":{"type":"object","properties":{"owner":{"type":"string"},"repo":{"type":"string"}},"required":["owner","repo"]}}`))
	})

	mux.HandleFunc("POST /api/v3/tools/execute/{slug}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ck-test", r.Header.Get("x-api-key"))

		var body struct {
			UserID    string         `json:"user_id"`
			Arguments map[string]any `json:"arguments"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		users <- body.UserID

		if body.Arguments["repo"] == "private" {
			_, _ = w.Write([]byte(`{"successful":false,"error":"connection not found"}`))
			return
		}

		_, _ = w.Write([]byte(`{"successful":true,"data":{"starred":true}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c, err := NewClient(func(o *Options) {
		o.APIKey = "ck-test"
		o.BaseURL = srv.URL
	})
	require.NoError(t, err)

	return c
}

func TestMetaTools(t *testing.T) {
	users := make(chan string, 4)
	c := newClient(t, newServer(t, users))
	exec := tool.NewExecutor(tool.MustRegistry(c.Tools()...))

	res := exec.Execute(context.Background(), core.ToolCall{ID: "1", Name: "composio_search_tools", Arguments: `{"query":"star"}`})
	assert.Equal(t, "1. "+starSlug+": Star a repository\n", res.Content)

	ctx := core.WithUserID(context.Background(), "alice")
	res = exec.Execute(ctx, core.ToolCall{ID: "2", Name: "composio_execute", Arguments: `{"slug":"github_star_a_repository_for_the_authenticated_user","arguments":{"owner":"a","repo":"b"}}`})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, `{"starred":true}`, res.Content)
	assert.Equal(t, "alice", <-users)

	res = exec.Execute(context.Background(), core.ToolCall{ID: "3", Name: "composio_execute", Arguments: `{"slug":"X","arguments":{"repo":"private"}}`})
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: connection not found", res.Content)
	assert.Equal(t, DefaultUserID, <-users)
}

func TestActionTools(t *testing.T) {
	users := make(chan string, 1)
	c := newClient(t, newServer(t, users))

	tools, err := c.ActionTools(context.Background(), starSlug)
	require.NoError(t, err)
	require.Len(t, tools, 1)

	star := tools[0]
	assert.Equal(t, "github_star_a_repository_for_the_authenticated_user", star.Name())
	assert.Equal(t, []any{"owner", "repo"}, star.Parameters()["required"])

	exec := tool.NewExecutor(tool.MustRegistry(tools...))

	res := exec.Execute(core.WithUserID(context.Background(), "bob"), core.ToolCall{ID: "1", Name: star.Name(), Arguments: `{"owner":"a","repo":"b"}`})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "bob", <-users)

	_, err = c.ActionTools(context.Background(), "GITHUB_NOPE")
	assert.ErrorContains(t, err, "tool not found")
}
