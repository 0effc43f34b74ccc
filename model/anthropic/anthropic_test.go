package anthropic

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/testutil"
	"github.com/ordo-ai/agentgraph/model"
)

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

func wire(t *testing.T, v any) []wireMessage {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var out []wireMessage
	require.NoError(t, json.Unmarshal(b, &out))

	return out
}

func TestBuildMessages(t *testing.T) {
	tests := []struct {
		name    string
		history []core.Message
		roles   []string
		check   func(t *testing.T, msgs []wireMessage)
	}{
		{
			name:    "consecutive tool results fold into one user turn",
			history: testutil.ParallelToolRoundTrip(),
			roles:   []string{"user", "assistant", "user"},
			check: func(t *testing.T, msgs []wireMessage) {
				assistant := msgs[1].Content
				require.Len(t, assistant, 3)
				assert.Equal(t, "text", assistant[0].Type)
				assert.Equal(t, "Let me check.", assistant[0].Text)

				assert.Equal(t, "tool_use", assistant[1].Type)
				assert.Equal(t, "call_1", assistant[1].ID)
				assert.Equal(t, "calculator", assistant[1].Name)
				assert.JSONEq(t, `{"operation":"add","a":2,"b":3}`, string(assistant[1].Input))

				assert.Equal(t, "call_2", assistant[2].ID)
				assert.JSONEq(t, `{}`, string(assistant[2].Input), "empty arguments default to an object")

				results := msgs[2].Content
				require.Len(t, results, 2)
				assert.Equal(t, "tool_result", results[0].Type)
				assert.Equal(t, "call_1", results[0].ToolUseID)
				assert.Equal(t, "tool_result", results[1].Type)
				assert.Equal(t, "call_2", results[1].ToolUseID)
			},
		},
		{
			name: "tool results flush before the next user turn",
			history: testutil.NewConversation().
				User("time?").
				ToolCallWithID("c1", "get_time", "").
				ToolResult("noon").
				User("thanks").
				Build(),
			roles: []string{"user", "assistant", "user", "user"},
			check: func(t *testing.T, msgs []wireMessage) {
				assert.Equal(t, "c1", msgs[2].Content[0].ToolUseID)
				assert.Equal(t, "thanks", msgs[3].Content[0].Text)
			},
		},
		{
			name:    "system messages and empty user turns are skipped",
			history: testutil.NewConversation().System("ctx").User("").User("hi").Assistant("hello").Build(),
			roles:   []string{"user", "assistant"},
		},
		{
			name: "invalid argument json is sent as a string",
			history: []core.Message{
				core.NewUserMessage("go"),
				core.NewAssistantMessage("", core.ToolCall{ID: "c1", Name: "echo", Arguments: "not json"}),
			},
			roles: []string{"user", "assistant"},
			check: func(t *testing.T, msgs []wireMessage) {
				require.Len(t, msgs[1].Content, 1)
				assert.JSONEq(t, `"not json"`, string(msgs[1].Content[0].Input))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := wire(t, buildMessages(tt.history))
			require.Len(t, msgs, len(tt.roles))

			for i, role := range tt.roles {
				assert.Equal(t, role, msgs[i].Role, "message %d", i)
			}

			if tt.check != nil {
				tt.check(t, msgs)
			}
		})
	}
}

func TestSystemBlocks(t *testing.T) {
	req := model.Request{
		Instructions: "Be brief.",
		Messages:     testutil.NewConversation().System("Today is Monday.").User("hi").Build(),
	}

	blocks := systemBlocks(req)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Be brief.", blocks[0].Text)
	assert.Equal(t, "Today is Monday.", blocks[1].Text)

	assert.Empty(t, systemBlocks(model.Request{Messages: testutil.NewConversation().User("hi").Build()}))
}

func TestBuildTools(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		required []string
	}{
		{
			name: "required as string slice",
			params: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []string{"query"},
			},
			required: []string{"query"},
		},
		{
			name: "required decoded from json",
			params: map[string]any{
				"type":       "object",
				"properties": map[string]any{"a": map[string]any{"type": "number"}, "b": map[string]any{"type": "number"}},
				"required":   []any{"a", "b", 3},
			},
			required: []string{"a", "b"},
		},
		{
			name:   "no parameters",
			params: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := buildTools([]model.ToolDefinition{model.NewToolDefinition("search", "Web search", tt.params)})
			require.Len(t, out, 1)
			require.NotNil(t, out[0].OfTool)

			assert.Equal(t, "search", out[0].OfTool.Name)
			assert.Equal(t, "Web search", out[0].OfTool.Description.Value)
			assert.Equal(t, tt.required, out[0].OfTool.InputSchema.Required)
		})
	}
}

func TestGenerate(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [
				{"type": "text", "text": "Searching."},
				{"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"query": "go"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.ClientOptions = []option.RequestOption{option.WithBaseURL(srv.URL), option.WithMaxRetries(0)}
	})

	resp, err := m.Generate(t.Context(), model.Request{
		Instructions: "Search when asked.",
		Messages:     testutil.ParallelToolRoundTrip(),
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "Searching.", resp.Message.Content)
	assert.Equal(t, "tool_use", resp.FinishReason)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.Message.ToolCalls[0].ID)
	assert.JSONEq(t, `{"query":"go"}`, resp.Message.ToolCalls[0].Arguments)

	assert.Len(t, got["messages"], 3)
	assert.Len(t, got["system"], 1)
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "bad"
		o.ClientOptions = []option.RequestOption{option.WithBaseURL(srv.URL), option.WithMaxRetries(0)}
	})

	_, err := m.Generate(t.Context(), model.Request{Messages: testutil.NewConversation().User("hi").Build()})

	var pe *core.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "anthropic", pe.Provider)
}
