package openai

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/testutil"
	"github.com/ordo-ai/agentgraph/model"
)

// wire renders converted messages the way they are sent.
func wire(t *testing.T, v any) []map[string]any {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(b, &out))

	return out
}

func text(t *testing.T, v any) string {
	t.Helper()

	switch c := v.(type) {
	case string:
		return c
	case []any:
		require.Len(t, c, 1)
		return c[0].(map[string]any)["text"].(string)
	default:
		t.Fatalf("unexpected content %T", v)
		return ""
	}
}

func TestBuildMessages(t *testing.T) {
	tests := []struct {
		name  string
		req   model.Request
		roles []string
		check func(t *testing.T, msgs []map[string]any)
	}{
		{
			name:  "instructions lead as system",
			req:   model.Request{Instructions: "Be brief.", Messages: testutil.NewConversation().User("hi").Build()},
			roles: []string{"system", "user"},
			check: func(t *testing.T, msgs []map[string]any) {
				assert.Equal(t, "Be brief.", text(t, msgs[0]["content"]))
				assert.Equal(t, "hi", text(t, msgs[1]["content"]))
			},
		},
		{
			name:  "parallel tool round trip",
			req:   model.Request{Messages: testutil.ParallelToolRoundTrip()},
			roles: []string{"user", "assistant", "tool", "tool"},
			check: func(t *testing.T, msgs []map[string]any) {
				assert.Equal(t, "Let me check.", text(t, msgs[1]["content"]))

				calls := msgs[1]["tool_calls"].([]any)
				require.Len(t, calls, 2)

				first := calls[0].(map[string]any)
				assert.Equal(t, "call_1", first["id"])
				assert.Equal(t, "function", first["type"])
				assert.Equal(t, "calculator", first["function"].(map[string]any)["name"])
				assert.JSONEq(t, `{"operation":"add","a":2,"b":3}`, first["function"].(map[string]any)["arguments"].(string))

				second := calls[1].(map[string]any)
				assert.Equal(t, "call_2", second["id"])
				assert.Equal(t, "{}", second["function"].(map[string]any)["arguments"], "empty arguments default to an object")

				assert.Equal(t, "call_1", msgs[2]["tool_call_id"])
				assert.Equal(t, "5", text(t, msgs[2]["content"]))
				assert.Equal(t, "call_2", msgs[3]["tool_call_id"])
			},
		},
		{
			name:  "assistant tool call without text",
			req:   model.Request{Messages: testutil.NewConversation().User("time?").ToolCallWithID("c9", "get_time", "").Build()},
			roles: []string{"user", "assistant"},
			check: func(t *testing.T, msgs []map[string]any) {
				calls := msgs[1]["tool_calls"].([]any)
				require.Len(t, calls, 1)
				assert.Equal(t, "c9", calls[0].(map[string]any)["id"])
			},
		},
		{
			name:  "history system message kept in place",
			req:   model.Request{Messages: testutil.NewConversation().System("ctx").User("hi").Assistant("hello").Build()},
			roles: []string{"system", "user", "assistant"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := wire(t, buildMessages(tt.req))
			require.Len(t, msgs, len(tt.roles))

			for i, role := range tt.roles {
				assert.Equal(t, role, msgs[i]["role"], "message %d", i)
			}

			if tt.check != nil {
				tt.check(t, msgs)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama-3.3-70b",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"id": "call_7", "type": "function", "function": {"name": "tavily_search", "arguments": "{\"query\":\"go\"}"}}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.Provider = "cerebras"
		o.Model = "llama-3.3-70b"
		o.APIKey = "test"
		o.BaseURL = srv.URL
		o.ClientOptions = []option.RequestOption{option.WithMaxRetries(0)}
	})

	assert.Equal(t, model.Info{Name: "llama-3.3-70b", Provider: "cerebras", SupportsTools: true}, m.Info())

	resp, err := m.Generate(t.Context(), model.Request{
		Instructions: "Search when asked.",
		Messages:     []core.Message{core.NewUserMessage("news about go")},
		Tools: []model.ToolDefinition{model.NewToolDefinition("tavily_search", "Web search", map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		})},
	})
	require.NoError(t, err)

	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, core.ToolCall{ID: "call_7", Name: "tavily_search", Arguments: `{"query":"go"}`}, resp.Message.ToolCalls[0])

	assert.Equal(t, "llama-3.3-70b", got["model"])
	require.Len(t, got["messages"], 2)

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "tavily_search", fn["name"])
	assert.Equal(t, []any{"query"}, fn["parameters"].(map[string]any)["required"])
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.Provider = "openrouter"
		o.APIKey = "bad"
		o.BaseURL = srv.URL
		o.ClientOptions = []option.RequestOption{option.WithMaxRetries(0)}
	})

	_, err := m.Generate(t.Context(), model.Request{Messages: []core.Message{core.NewUserMessage("hi")}})

	var pe *core.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "openrouter", pe.Provider)
}
