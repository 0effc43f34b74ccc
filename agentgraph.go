// Package agentgraph is the entry point for serving catalog agents.
//
// An AgentGraph wraps an agent.Runtime with the per-request plumbing a
// service needs: conversation history keyed by user and agent, a record of
// every run, a run deadline, and an optional queue for asynchronous jobs.
//
//	rt, _ := agent.New(config.DefaultCatalog(), ...)
//	ag, _ := agentgraph.New(rt)
//	res, err := ag.Invoke(ctx, agentgraph.InvokeRequest{UserID: "user_001", Message: "Search for AI news"})
package agentgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ordo-ai/agentgraph/agent"
	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/graph"
	"github.com/ordo-ai/agentgraph/history"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/queue"
	"github.com/ordo-ai/agentgraph/runlog"
)

// ErrEmptyMessage is returned for requests without text.
var ErrEmptyMessage = errors.New("message is required")

// Options configures an AgentGraph. Unset stores default to in-memory ones.
type Options struct {
	History history.Store
	Runs    runlog.Store
	Queue   queue.Queue
	// RunTimeout bounds a whole run including every model and tool call.
	// Zero means no deadline beyond the caller's context.
	RunTimeout time.Duration
	// Workers is the number of queue consumers started by Serve.
	Workers int
	Logger  logging.Logger
}

// AgentGraph runs catalog agents for users.
type AgentGraph struct {
	rt     *agent.Runtime
	opts   Options
	logger *logging.GraphLogger
}

// New creates an AgentGraph over rt.
func New(rt *agent.Runtime, optFns ...func(o *Options)) (*AgentGraph, error) {
	if rt == nil {
		return nil, errors.New("agentgraph: runtime is required")
	}

	opts := Options{Workers: 4, Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.History == nil {
		opts.History = history.NewMemoryStore(history.DefaultLimit)
	}

	if opts.Runs == nil {
		opts.Runs = runlog.NewMemoryStore()
	}

	if opts.Queue == nil {
		opts.Queue = queue.NewMemoryQueue(0)
	}

	return &AgentGraph{
		rt:     rt,
		opts:   opts,
		logger: logging.NewGraphLogger(opts.Logger).WithComponent("agentgraph"),
	}, nil
}

// Runtime returns the underlying runtime.
func (g *AgentGraph) Runtime() *agent.Runtime { return g.rt }

// InvokeRequest asks an agent to answer one user message.
type InvokeRequest struct {
	UserID string
	// Agent defaults to the catalog's default agent.
	Agent   string
	Message string
}

// InvokeResult is the outcome of a run. On non-convergence it is returned
// together with the error and holds the partial reply.
type InvokeResult struct {
	RunID     string          `json:"run_id"`
	UserID    string          `json:"user_id"`
	Agent     string          `json:"agent"`
	Message   string          `json:"message"`
	Response  string          `json:"response"`
	ToolCalls []core.ToolCall `json:"tool_calls"`
	Steps     int             `json:"steps"`
	Status    runlog.Status   `json:"status"`
	// Messages are the messages the run appended, starting with the user
	// message.
	Messages []core.Message `json:"-"`
}

// Invoke runs an agent synchronously. A run that hits its step budget
// returns its partial result and an error matching core.ErrNotConverged.
func (g *AgentGraph) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	run, err := g.newRun(req, runlog.StatusRunning)
	if err != nil {
		return nil, err
	}

	if err := g.opts.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	return g.execute(ctx, run)
}

// Submit records a queued run and publishes it for the workers started by
// Serve.
func (g *AgentGraph) Submit(ctx context.Context, req InvokeRequest) (*runlog.Run, error) {
	run, err := g.newRun(req, runlog.StatusQueued)
	if err != nil {
		return nil, err
	}

	if err := g.opts.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	if err := g.opts.Queue.Publish(ctx, run.ID); err != nil {
		run.Status = runlog.StatusFailed
		run.Error = err.Error()
		_ = g.opts.Runs.Finish(ctx, run)

		return nil, fmt.Errorf("publish run: %w", err)
	}

	g.logger.Info("job.queued", "run_id", run.ID, "agent", run.Agent, "user_id", run.UserID)

	return run, nil
}

// Serve consumes queued runs until ctx is done.
func (g *AgentGraph) Serve(ctx context.Context) error {
	return g.opts.Queue.Consume(ctx, g.opts.Workers, g.handleJob)
}

func (g *AgentGraph) handleJob(ctx context.Context, id string) error {
	run, err := g.opts.Runs.Claim(ctx, id)
	if err != nil {
		if errors.Is(err, runlog.ErrNotClaimable) || errors.Is(err, runlog.ErrNotFound) {
			g.logger.Warn("job.skipped", "run_id", id, "error", err.Error())
			return nil
		}

		return err
	}

	_, err = g.execute(ctx, run)
	if core.IsNotConverged(err) {
		return nil
	}

	return err
}

// Run returns the record of a run.
func (g *AgentGraph) Run(ctx context.Context, id string) (*runlog.Run, error) {
	return g.opts.Runs.Get(ctx, id)
}

// Runs lists the recent runs of a user.
func (g *AgentGraph) Runs(ctx context.Context, userID string, limit int) ([]runlog.Run, error) {
	return g.opts.Runs.List(ctx, userID, limit)
}

// ClearHistory forgets the conversation between a user and an agent.
func (g *AgentGraph) ClearHistory(ctx context.Context, userID, agentName string) error {
	if _, err := g.rt.Agent(agentName); err != nil {
		return err
	}

	return g.opts.History.Clear(ctx, history.Key{UserID: userID, Agent: agentName})
}

// Close releases the queue and runtime resources.
func (g *AgentGraph) Close() error {
	err := g.opts.Queue.Close()
	g.rt.Close()

	return err
}

func (g *AgentGraph) newRun(req InvokeRequest, status runlog.Status) (*runlog.Run, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}

	name := req.Agent
	if name == "" {
		name = g.rt.Default()
	}

	if _, err := g.rt.Agent(name); err != nil {
		return nil, err
	}

	return &runlog.Run{
		ID:     core.NewID(),
		UserID: req.UserID,
		Agent:  name,
		Status: status,
		Input:  msg,
	}, nil
}

// execute runs a recorded run and records its outcome. Only completed runs
// extend the conversation history: a partial run may end on tool calls
// whose results were never produced.
func (g *AgentGraph) execute(ctx context.Context, run *runlog.Run) (*InvokeResult, error) {
	logger := g.logger.WithRun(run.ID, run.UserID)

	a, err := g.rt.Agent(run.Agent)
	if err != nil {
		return nil, g.fail(ctx, run, err)
	}

	if g.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.RunTimeout)

		defer cancel()
	}

	ctx = core.WithUserID(ctx, run.UserID)
	key := history.Key{UserID: run.UserID, Agent: run.Agent}

	past, err := g.opts.History.Load(ctx, key)
	if err != nil {
		return nil, g.fail(ctx, run, err)
	}

	start := time.Now()
	input := append(past, core.NewUserMessage(run.Input))

	res, runErr := a.Run(ctx, graph.NewState(input...))

	out := &InvokeResult{
		RunID:    run.ID,
		UserID:   run.UserID,
		Agent:    run.Agent,
		Message:  run.Input,
		Response: res.Reply(),
		Steps:    res.Steps,
		Messages: res.NewMessages(len(past)),
	}

	for _, m := range out.Messages {
		out.ToolCalls = append(out.ToolCalls, m.ToolCalls...)
	}

	switch {
	case runErr == nil:
		out.Status = runlog.StatusCompleted

		if err := g.opts.History.Append(context.WithoutCancel(ctx), key, out.Messages...); err != nil {
			logger.Error("history.append.failed", "error", err.Error())
		}
	case core.IsNotConverged(runErr):
		out.Status = runlog.StatusNotConverged
	default:
		out.Status = runlog.StatusFailed
	}

	run.Status = out.Status
	run.Response = out.Response
	run.Steps = out.Steps
	run.ToolCalls = len(out.ToolCalls)

	if runErr != nil {
		run.Error = runErr.Error()
	}

	// The run context may be past its deadline; the record must still land.
	if err := g.opts.Runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("run.record.failed", "error", err.Error())
	}

	logger.LogRun(run.Agent, out.Steps, time.Since(start), runErr)

	if runErr != nil && out.Status == runlog.StatusFailed {
		return nil, runErr
	}

	return out, runErr
}

func (g *AgentGraph) fail(ctx context.Context, run *runlog.Run, err error) error {
	run.Status = runlog.StatusFailed
	run.Error = err.Error()

	if ferr := g.opts.Runs.Finish(context.WithoutCancel(ctx), run); ferr != nil {
		g.logger.Error("run.record.failed", "run_id", run.ID, "error", ferr.Error())
	}

	return err
}
