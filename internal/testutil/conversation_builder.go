package testutil

import (
	"fmt"

	"github.com/ordo-ai/agentgraph/core"
)

// ConversationBuilder provides a fluent helper for constructing message
// histories in tests.
// Example:
//
//	msgs := NewConversation().User("add 2 and 3").ToolCall("calculator", `{"operation":"add","a":2,"b":3}`).Build()
//
// Tool call IDs are assigned sequentially ("call_1", "call_2", ...) unless
// ToolCallWithID is used.
type ConversationBuilder struct {
	msgs []core.Message
	seq  int
}

// NewConversation creates an empty builder.
func NewConversation() *ConversationBuilder { return &ConversationBuilder{} }

// System appends a system message (chainable).
func (b *ConversationBuilder) System(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewSystemMessage(t))
	return b
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(t))
	return b
}

// Assistant appends a plain assistant message (chainable).
func (b *ConversationBuilder) Assistant(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(t))
	return b
}

// ToolCall appends an assistant message requesting one call (chainable).
func (b *ConversationBuilder) ToolCall(name, args string) *ConversationBuilder {
	b.seq++
	return b.ToolCallWithID(fmt.Sprintf("call_%d", b.seq), name, args)
}

// ToolCallWithID appends an assistant message requesting one call with a fixed id (chainable).
func (b *ConversationBuilder) ToolCallWithID(id, name, args string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage("", core.ToolCall{ID: id, Name: name, Arguments: args}))
	return b
}

// ToolResult appends a tool message answering the most recent call (chainable).
func (b *ConversationBuilder) ToolResult(content string) *ConversationBuilder {
	var call core.ToolCall

	for i := len(b.msgs) - 1; i >= 0; i-- {
		if calls := b.msgs[i].ToolCalls; len(calls) > 0 {
			call = calls[len(calls)-1]
			break
		}
	}

	b.msgs = append(b.msgs, core.NewToolMessage(core.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: content}))

	return b
}

// Build returns a copy of the accumulated messages.
func (b *ConversationBuilder) Build() []core.Message {
	return core.CloneMessages(b.msgs)
}

// CallingMessage returns an assistant message requesting each of names,
// with empty-object arguments and no IDs.
func CallingMessage(names ...string) core.Message {
	calls := make([]core.ToolCall, len(names))
	for i, n := range names {
		calls[i] = core.ToolCall{Name: n, Arguments: "{}"}
	}

	return core.NewAssistantMessage("", calls...)
}

// ParallelToolRoundTrip is a history where one assistant turn requests two
// tools and both results follow: call_1 runs calculator with arguments,
// call_2 runs get_time with empty arguments.
func ParallelToolRoundTrip() []core.Message {
	return []core.Message{
		core.NewUserMessage("what is 2+3 and what time is it?"),
		core.NewAssistantMessage("Let me check.",
			core.ToolCall{ID: "call_1", Name: "calculator", Arguments: `{"operation":"add","a":2,"b":3}`},
			core.ToolCall{ID: "call_2", Name: "get_time"},
		),
		core.NewToolMessage(core.ToolResult{ToolCallID: "call_1", Name: "calculator", Content: "5"}),
		core.NewToolMessage(core.ToolResult{ToolCallID: "call_2", Name: "get_time", Content: "2024-01-01T00:00:00Z"}),
	}
}
