package testutil

import (
	"sync/atomic"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/tool"
)

// CountingTool is a tool that returns a fixed reply and counts its calls.
type CountingTool struct {
	*tool.FunctionTool
	calls atomic.Int64
}

// NewCountingTool creates a tool named name that always returns reply.
func NewCountingTool(name, reply string) *CountingTool {
	ct := &CountingTool{}
	ct.FunctionTool = tool.NewFunctionTool(name, "Returns "+reply, map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		ct.calls.Add(1)
		return reply, nil
	})

	return ct
}

// Calls returns how many times the tool ran.
func (c *CountingTool) Calls() int { return int(c.calls.Load()) }
