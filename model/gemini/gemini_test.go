package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/testutil"
	"github.com/ordo-ai/agentgraph/model"
)

type fakeChat struct {
	reply *schema.Message
	err   error

	input []*schema.Message
	tools []*schema.ToolInfo
}

func (f *fakeChat) Generate(_ context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.input = input
	f.tools = einomodel.GetCommonOptions(nil, opts...).Tools

	return f.reply, f.err
}

func TestToSchemaMessages(t *testing.T) {
	tests := []struct {
		name  string
		req   model.Request
		roles []schema.RoleType
		check func(t *testing.T, msgs []*schema.Message)
	}{
		{
			name:  "instructions lead as system",
			req:   model.Request{Instructions: "Be brief.", Messages: testutil.NewConversation().User("hi").Build()},
			roles: []schema.RoleType{schema.System, schema.User},
			check: func(t *testing.T, msgs []*schema.Message) {
				assert.Equal(t, "Be brief.", msgs[0].Content)
			},
		},
		{
			name:  "parallel tool round trip",
			req:   model.Request{Messages: testutil.ParallelToolRoundTrip()},
			roles: []schema.RoleType{schema.User, schema.Assistant, schema.Tool, schema.Tool},
			check: func(t *testing.T, msgs []*schema.Message) {
				assert.Equal(t, "Let me check.", msgs[1].Content)
				require.Len(t, msgs[1].ToolCalls, 2)
				assert.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)
				assert.Equal(t, "calculator", msgs[1].ToolCalls[0].Function.Name)
				assert.JSONEq(t, `{"operation":"add","a":2,"b":3}`, msgs[1].ToolCalls[0].Function.Arguments)
				assert.Equal(t, "call_2", msgs[1].ToolCalls[1].ID)
				assert.Equal(t, "{}", msgs[1].ToolCalls[1].Function.Arguments, "empty arguments default to an object")

				assert.Equal(t, "call_1", msgs[2].ToolCallID)
				assert.Equal(t, "calculator", msgs[2].ToolName)
				assert.Equal(t, "5", msgs[2].Content)
				assert.Equal(t, "call_2", msgs[3].ToolCallID)
				assert.Equal(t, "get_time", msgs[3].ToolName)
			},
		},
		{
			name:  "plain assistant turn has no calls",
			req:   model.Request{Messages: testutil.NewConversation().System("ctx").User("hi").Assistant("hello").Build()},
			roles: []schema.RoleType{schema.System, schema.User, schema.Assistant},
			check: func(t *testing.T, msgs []*schema.Message) {
				assert.Empty(t, msgs[2].ToolCalls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := toSchemaMessages(tt.req)
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

func TestFromSchemaMessage(t *testing.T) {
	tests := []struct {
		name   string
		in     *schema.Message
		finish string
		usage  *model.TokenUsage
		check  func(t *testing.T, resp model.Response)
	}{
		{
			name:   "text reply stops",
			in:     schema.AssistantMessage("hello", nil),
			finish: "stop",
			check: func(t *testing.T, resp model.Response) {
				assert.Equal(t, "hello", resp.Message.Content)
				assert.False(t, resp.Message.HasToolCalls())
			},
		},
		{
			name: "calls without ids get generated ids",
			in: schema.AssistantMessage("", []schema.ToolCall{
				{Function: schema.FunctionCall{Name: "get_time", Arguments: "{}"}},
				{ID: "fc_2", Function: schema.FunctionCall{Name: "calculator", Arguments: `{"a":1}`}},
			}),
			finish: "tool_calls",
			check: func(t *testing.T, resp model.Response) {
				require.Len(t, resp.Message.ToolCalls, 2)
				assert.True(t, strings.HasPrefix(resp.Message.ToolCalls[0].ID, "call_"))
				assert.Greater(t, len(resp.Message.ToolCalls[0].ID), len("call_"))
				assert.Equal(t, "fc_2", resp.Message.ToolCalls[1].ID)
				assert.Equal(t, `{"a":1}`, resp.Message.ToolCalls[1].Arguments)
			},
		},
		{
			name: "response meta overrides finish reason and carries usage",
			in: &schema.Message{
				Role:    schema.Assistant,
				Content: "cut",
				ResponseMeta: &schema.ResponseMeta{
					FinishReason: "MAX_TOKENS",
					Usage:        &schema.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
				},
			},
			finish: "MAX_TOKENS",
			usage:  &model.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := fromSchemaMessage(tt.in)

			assert.Equal(t, core.RoleAssistant, resp.Message.Role)
			assert.Equal(t, tt.finish, resp.FinishReason)
			assert.Equal(t, tt.usage, resp.Usage)

			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestParamsFromSchema(t *testing.T) {
	tests := []struct {
		name     string
		schema   map[string]any
		required map[string]bool
		check    func(t *testing.T, params map[string]*schema.ParameterInfo)
	}{
		{
			name: "required as string slice",
			schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Search query"},
					"limit": map[string]any{"type": "integer"},
				},
				"required": []string{"query"},
			},
			required: map[string]bool{"query": true, "limit": false},
			check: func(t *testing.T, params map[string]*schema.ParameterInfo) {
				assert.Equal(t, schema.String, params["query"].Type)
				assert.Equal(t, "Search query", params["query"].Desc)
				assert.Equal(t, schema.Integer, params["limit"].Type)
			},
		},
		{
			name: "required decoded from json with enum",
			schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{"type": "string", "enum": []any{"add", "subtract"}},
					"a":         map[string]any{"type": "number"},
				},
				"required": []any{"operation", "a"},
			},
			required: map[string]bool{"operation": true, "a": true},
			check: func(t *testing.T, params map[string]*schema.ParameterInfo) {
				assert.Equal(t, []string{"add", "subtract"}, params["operation"].Enum)
				assert.Equal(t, schema.Number, params["a"].Type)
			},
		},
		{
			name: "nested array and object",
			schema: map[string]any{
				"properties": map[string]any{
					"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"owner": map[string]any{
						"type":       "object",
						"properties": map[string]any{"login": map[string]any{"type": "string"}},
						"required":   []any{"login"},
					},
				},
			},
			required: map[string]bool{"tags": false, "owner": false},
			check: func(t *testing.T, params map[string]*schema.ParameterInfo) {
				require.NotNil(t, params["tags"].ElemInfo)
				assert.Equal(t, schema.String, params["tags"].ElemInfo.Type)

				require.Contains(t, params["owner"].SubParams, "login")
				assert.True(t, params["owner"].SubParams["login"].Required)
			},
		},
		{
			name:     "no properties",
			schema:   map[string]any{"type": "object"},
			required: map[string]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := paramsFromSchema(tt.schema)
			require.Len(t, params, len(tt.required))

			for name, want := range tt.required {
				require.Contains(t, params, name)
				assert.Equal(t, want, params[name].Required, name)
			}

			if tt.check != nil {
				tt.check(t, params)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	chat := &fakeChat{reply: schema.AssistantMessage("", []schema.ToolCall{
		{ID: "fc_1", Function: schema.FunctionCall{Name: "calculator", Arguments: `{"a":1,"b":2}`}},
	})}

	m := NewModelFromChatModel(chat, "gemini-2.0-flash")
	assert.Equal(t, model.Info{Name: "gemini-2.0-flash", Provider: "gemini", SupportsTools: true}, m.Info())

	resp, err := m.Generate(t.Context(), model.Request{
		Instructions: "Use tools.",
		Messages:     testutil.ParallelToolRoundTrip(),
		Tools: []model.ToolDefinition{model.NewToolDefinition("calculator", "Arithmetic", map[string]any{
			"type":       "object",
			"properties": map[string]any{"a": map[string]any{"type": "number"}},
			"required":   []string{"a"},
		})},
	})
	require.NoError(t, err)

	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, []core.ToolCall{{ID: "fc_1", Name: "calculator", Arguments: `{"a":1,"b":2}`}}, resp.Message.ToolCalls)

	assert.Len(t, chat.input, 5)
	require.Len(t, chat.tools, 1)
	assert.Equal(t, "calculator", chat.tools[0].Name)
	assert.Equal(t, "Arithmetic", chat.tools[0].Desc)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		chat *fakeChat
	}{
		{name: "provider failure", chat: &fakeChat{err: errors.New("quota exceeded")}},
		{name: "empty response", chat: &fakeChat{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModelFromChatModel(tt.chat, "gemini-2.0-flash").Generate(t.Context(), model.Request{
				Messages: testutil.NewConversation().User("hi").Build(),
			})

			var pe *core.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "gemini", pe.Provider)
			assert.Equal(t, "gemini-2.0-flash", pe.Model)
		})
	}
}
