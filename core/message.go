package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a Message.
type Role string

const (
	// RoleSystem carries instructions for the model.
	RoleSystem Role = "system"
	// RoleUser is end-user input.
	RoleUser Role = "user"
	// RoleAssistant is model output, possibly carrying tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool carries the result of one tool call.
	RoleTool Role = "tool"
)

// ParseRole maps a wire role name to a Role. "ai" is accepted as an alias
// for assistant and "human" for user.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "user", "human":
		return RoleUser, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	case "tool":
		return RoleTool, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so decoded messages
// always carry a canonical role.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// ToolCall is a structured request, emitted by a model, to invoke a named
// tool. Arguments holds the serialized JSON object.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Args decodes Arguments into a map. Empty arguments decode to an empty map.
func (c ToolCall) Args() (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(c.Arguments) == "" {
		return args, nil
	}

	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", c.Name, err)
	}

	return args, nil
}

// ToolResult is the outcome of exactly one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message is one entry of a conversation history.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	// Name is the tool name on tool messages.
	Name string `json:"name,omitempty"`
}

// HasToolCalls reports whether the message requests at least one tool call.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message, optionally with tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage converts a ToolResult into a tool message.
func NewToolMessage(r ToolResult) Message {
	return Message{Role: RoleTool, Content: r.Content, ToolCallID: r.ToolCallID, Name: r.Name}
}

// LastMessage returns the final message of msgs.
func LastMessage(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}

	return msgs[len(msgs)-1], true
}

// LastUserText returns the content of the most recent user message.
func LastUserText(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}

	return ""
}

// CloneMessages returns a copy of msgs whose tool call slices are not shared.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}

	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.ToolCalls != nil {
			m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		}

		out[i] = m
	}

	return out
}
