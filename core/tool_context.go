package core

import (
	"context"

	"github.com/ordo-ai/agentgraph/logging"
)

// ToolContext is the constrained surface handed to a tool implementation for
// one call. It exposes the deadline-bearing context, the call identifier and
// the namespace (end-user id) a tool provider should scope its work to.
type ToolContext struct {
	ctx    context.Context
	callID string
	name   string
	logger *logging.GraphLogger
}

// NewToolContext binds a tool invocation to ctx and its originating call.
// Entries written through Logger carry the tool name, call id and user id.
func NewToolContext(ctx context.Context, call ToolCall, logger logging.Logger) *ToolContext {
	l := logging.NewGraphLogger(logger).
		WithComponent("tool").
		WithContext("tool_name", call.Name).
		WithContext("call_id", call.ID)

	if user := UserIDFromContext(ctx); user != "" {
		l = l.WithContext("user_id", user)
	}

	return &ToolContext{
		ctx:    ctx,
		callID: call.ID,
		name:   call.Name,
		logger: l,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// CallID returns the id of the originating ToolCall.
func (tc *ToolContext) CallID() string { return tc.callID }

// ToolName returns the name the model used to request the tool.
func (tc *ToolContext) ToolName() string { return tc.name }

// UserID returns the end-user namespace for the call, or "" if unset.
func (tc *ToolContext) UserID() string { return UserIDFromContext(tc.ctx) }

// Logger returns a logger scoped to this call.
func (tc *ToolContext) Logger() *logging.GraphLogger { return tc.logger }
