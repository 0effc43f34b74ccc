// Package gemini adapts Google Gemini, through the eino chat model
// component, to model.Model.
package gemini

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/model"
)

// ChatModel is the subset of an eino chat model used by the adapter.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Options configures the Gemini adapter.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// Model wraps an eino ChatModel behind model.Model. Tools are passed per
// call, so one Model is safe to share between concurrent runs.
type Model struct {
	chat ChatModel
	opts Options
}

// NewModel builds a genai client and an eino Gemini chat model.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       opts.Model,
		Temperature: &opts.Temperature,
		MaxTokens:   &opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}

	return &Model{chat: chat, opts: opts}, nil
}

// NewModelFromChatModel wraps an existing eino chat model.
func NewModelFromChatModel(chat ChatModel, name string) *Model {
	return &Model{chat: chat, opts: Options{Model: name}}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	var callOpts []einomodel.Option
	if len(req.Tools) > 0 {
		callOpts = append(callOpts, einomodel.WithTools(toToolInfos(req.Tools)))
	}

	out, err := m.chat.Generate(ctx, toSchemaMessages(req), callOpts...)
	if err != nil {
		return model.Response{}, core.NewProviderError("gemini", m.opts.Model, err)
	}

	if out == nil {
		return model.Response{}, core.NewProviderError("gemini", m.opts.Model, fmt.Errorf("empty response"))
	}

	return fromSchemaMessage(out), nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}

func toSchemaMessages(req model.Request) []*schema.Message {
	out := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		out = append(out, schema.SystemMessage(req.Instructions))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case core.RoleAssistant:
			var calls []schema.ToolCall
			for _, c := range msg.ToolCalls {
				args := c.Arguments
				if args == "" {
					args = "{}"
				}

				calls = append(calls, schema.ToolCall{
					ID: c.ID,
					Function: schema.FunctionCall{
						Name:      c.Name,
						Arguments: args,
					},
				})
			}

			out = append(out, schema.AssistantMessage(msg.Content, calls))
		case core.RoleTool:
			out = append(out, schema.ToolMessage(msg.Content, msg.ToolCallID, schema.WithToolName(msg.Name)))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}

	return out
}

func fromSchemaMessage(in *schema.Message) model.Response {
	msg := core.NewAssistantMessage(in.Content)
	for _, c := range in.ToolCalls {
		id := c.ID
		if id == "" {
			id = "call_" + core.NewID()
		}

		msg.ToolCalls = append(msg.ToolCalls, core.ToolCall{
			ID:        id,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}

	resp := model.Response{Message: msg, FinishReason: "stop"}
	if msg.HasToolCalls() {
		resp.FinishReason = "tool_calls"
	}

	if in.ResponseMeta != nil {
		if in.ResponseMeta.FinishReason != "" {
			resp.FinishReason = in.ResponseMeta.FinishReason
		}

		if u := in.ResponseMeta.Usage; u != nil {
			resp.Usage = &model.TokenUsage{
				PromptTokens:     u.PromptTokens,
				CompletionTokens: u.CompletionTokens,
				TotalTokens:      u.TotalTokens,
			}
		}
	}

	return resp
}

func toToolInfos(defs []model.ToolDefinition) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, len(defs))
	for i, d := range defs {
		infos[i] = &schema.ToolInfo{
			Name:        d.Function.Name,
			Desc:        d.Function.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(paramsFromSchema(d.Function.Parameters)),
		}
	}

	return infos
}

// paramsFromSchema converts a JSON schema object into eino parameter infos.
func paramsFromSchema(s map[string]any) map[string]*schema.ParameterInfo {
	props, _ := s["properties"].(map[string]any)
	if len(props) == 0 {
		return map[string]*schema.ParameterInfo{}
	}

	required := map[string]bool{}
	switch req := s["required"].(type) {
	case []string:
		for _, r := range req {
			required[r] = true
		}
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	out := make(map[string]*schema.ParameterInfo, len(props))
	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		info := parameterInfo(prop)
		info.Required = required[name]
		out[name] = info
	}

	return out
}

func parameterInfo(prop map[string]any) *schema.ParameterInfo {
	info := &schema.ParameterInfo{Type: schema.String}
	if t, ok := prop["type"].(string); ok {
		info.Type = schema.DataType(t)
	}

	if d, ok := prop["description"].(string); ok {
		info.Desc = d
	}

	if enum, ok := prop["enum"].([]any); ok {
		for _, e := range enum {
			info.Enum = append(info.Enum, fmt.Sprint(e))
		}
	} else if enum, ok := prop["enum"].([]string); ok {
		info.Enum = append(info.Enum, enum...)
	}

	switch info.Type {
	case schema.Array:
		if items, ok := prop["items"].(map[string]any); ok {
			info.ElemInfo = parameterInfo(items)
		}
	case schema.Object:
		info.SubParams = paramsFromSchema(prop)
	}

	return info
}

var _ model.Model = (*Model)(nil)
