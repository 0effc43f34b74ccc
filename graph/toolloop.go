package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/util"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/model"
	"github.com/ordo-ai/agentgraph/tool"
)

// Node names used by tool loop graphs.
const (
	AgentNode = "agent"
	ToolsNode = "tools"
)

// DefaultMaxToolRounds is the number of agent/tools round trips allowed
// before a tool loop is reported as not converged.
const DefaultMaxToolRounds = 10

// ToolLoopOptions configures NewToolLoop.
type ToolLoopOptions struct {
	Name string
	// Instructions is a text/template rendered per model call with the
	// fields agent, now and user_id.
	Instructions string
	// MaxToolRounds bounds agent/tools round trips. The step budget is
	// 2*MaxToolRounds+1 unless MaxSteps is set.
	MaxToolRounds int
	MaxSteps      int
	// ModelTimeout bounds each model call. Zero keeps the gateway default.
	ModelTimeout time.Duration
	// ToolTimeout bounds each tool call. Zero keeps the executor default.
	ToolTimeout time.Duration
	// ToolParallelism caps concurrent tool calls of one assistant message.
	ToolParallelism int
	Logger          logging.Logger
	Callbacks       *CallbackManager
}

// NewToolLoop builds the agent -> tools -> agent graph:
//
//	agent --(tool calls)--> tools --> agent
//	agent --(no tool calls)--> End
//
// m is wrapped in a model.Safe gateway unless it already is one, so provider
// failures end the run with an assistant message. A nil registry binds no
// tools.
func NewToolLoop(m model.Model, registry *tool.Registry, optFns ...func(o *ToolLoopOptions)) (*Graph, error) {
	opts := ToolLoopOptions{
		Name:          "tool_loop",
		MaxToolRounds: DefaultMaxToolRounds,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if m == nil {
		return nil, fmt.Errorf("graph: tool loop %q has no model", opts.Name)
	}

	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}

	if opts.MaxSteps == 0 {
		opts.MaxSteps = 2*opts.MaxToolRounds + 1
	}

	if _, ok := m.(*model.Safe); !ok {
		m = model.NewSafe(m, func(o *model.SafeOptions) {
			o.Logger = opts.Logger
			if opts.ModelTimeout > 0 {
				o.Timeout = opts.ModelTimeout
			}
		})
	}

	exec := tool.NewExecutor(registry, func(o *tool.ExecutorOptions) {
		o.Logger = opts.Logger
		if opts.ToolTimeout > 0 {
			o.Timeout = opts.ToolTimeout
		}

		if opts.ToolParallelism > 0 {
			o.MaxParallel = opts.ToolParallelism
		}
	})

	loop := &toolLoop{
		name:         opts.Name,
		model:        m,
		exec:         exec,
		instructions: opts.Instructions,
		tools:        registry.Definitions(),
	}

	return NewBuilder().
		AddNode(AgentNode, loop.agent).
		AddNode(ToolsNode, loop.runTools).
		SetEntryPoint(AgentNode).
		AddConditionalEdges(AgentNode, routeToolCalls, map[string]string{
			ToolsNode: ToolsNode,
			End:       End,
		}).
		AddEdge(ToolsNode, AgentNode).
		Compile(func(o *Options) {
			o.Name = opts.Name
			o.MaxSteps = opts.MaxSteps
			o.Logger = opts.Logger
			o.Callbacks = opts.Callbacks
		})
}

type toolLoop struct {
	name         string
	model        model.Model
	exec         *tool.Executor
	instructions string
	tools        []model.ToolDefinition
}

func (l *toolLoop) agent(ctx context.Context, s State) (Update, error) {
	instructions, err := util.RenderTemplate(l.instructions, map[string]any{
		"agent":   l.name,
		"now":     time.Now().UTC().Format(time.RFC3339),
		"user_id": core.UserIDFromContext(ctx),
	})
	if err != nil {
		return Update{}, fmt.Errorf("render instructions: %w", err)
	}

	resp, err := l.model.Generate(ctx, model.Request{
		Instructions: instructions,
		Messages:     s.Messages,
		Tools:        l.tools,
	})
	if err != nil {
		return Update{}, err
	}

	msg := resp.Message
	msg.ToolCalls = uniqueCallIDs(msg.ToolCalls)

	return Update{Messages: []core.Message{msg}}, nil
}

func (l *toolLoop) runTools(ctx context.Context, s State) (Update, error) {
	last, ok := s.LastMessage()
	if !ok || !last.HasToolCalls() {
		return Update{}, nil
	}

	results := l.exec.ExecuteAll(ctx, last.ToolCalls)

	msgs := make([]core.Message, len(results))
	for i, r := range results {
		msgs[i] = core.NewToolMessage(r)
	}

	return Update{Messages: msgs}, nil
}

func routeToolCalls(_ context.Context, s State) string {
	if last, ok := s.LastMessage(); ok && last.HasToolCalls() {
		return ToolsNode
	}

	return End
}

// uniqueCallIDs assigns an identifier to calls that arrive without one, or
// with one already used earlier in the same message.
func uniqueCallIDs(calls []core.ToolCall) []core.ToolCall {
	if len(calls) == 0 {
		return calls
	}

	seen := make(map[string]bool, len(calls))
	out := make([]core.ToolCall, len(calls))

	for i, c := range calls {
		if c.ID == "" || seen[c.ID] {
			c.ID = "call_" + core.NewID()
		}

		seen[c.ID] = true
		out[i] = c
	}

	return out
}
