package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/logging"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// MaxParallel bounds concurrently running calls of one batch. Values
	// below 1 mean one goroutine per call.
	MaxParallel int
	// Timeout bounds each call. Zero disables the per-call deadline.
	Timeout time.Duration
	Logger  logging.Logger
}

// Executor resolves ToolCalls against a Registry. It never returns an error:
// unknown tools, bad arguments, failures and panics all become ToolResult
// content so the conversation history stays valid.
type Executor struct {
	registry *Registry
	opts     ExecutorOptions
	logger   *logging.GraphLogger
}

// NewExecutor creates an Executor over registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		MaxParallel: 4,
		Timeout:     30 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		registry: registry,
		opts:     opts,
		logger:   logging.NewGraphLogger(opts.Logger).WithComponent("tool"),
	}
}

// Registry returns the registry the executor resolves against.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs a single call.
func (e *Executor) Execute(ctx context.Context, call core.ToolCall) core.ToolResult {
	start := time.Now()
	result, err := e.invoke(ctx, call)
	e.logger.LogToolCall(call.Name, call.ID, time.Since(start), err)

	if err != nil {
		return core.ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    ErrorContent(err),
			IsError:    true,
		}
	}

	return core.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    FormatResult(result),
	}
}

// ExecuteAll runs calls concurrently and returns one result per call in the
// order of calls. A failing call never affects the others.
func (e *Executor) ExecuteAll(ctx context.Context, calls []core.ToolCall) []core.ToolResult {
	results := make([]core.ToolResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	if len(calls) == 1 {
		results[0] = e.Execute(ctx, calls[0])
		return results
	}

	var g errgroup.Group
	if e.opts.MaxParallel > 0 {
		g.SetLimit(e.opts.MaxParallel)
	}

	batchStart := time.Now()

	for i, call := range calls {
		g.Go(func() error {
			results[i] = e.Execute(ctx, call)
			return nil
		})
	}

	_ = g.Wait()

	e.logger.Debug("tool.batch.completed", "count", len(calls), "parallelism", e.opts.MaxParallel, "duration", time.Since(batchStart))

	return results
}

func (e *Executor) invoke(ctx context.Context, call core.ToolCall) (result any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	impl, ok := e.registry.Lookup(call.Name)
	if !ok {
		return nil, &core.ToolNotFoundError{Name: call.Name}
	}

	args, err := call.Args()
	if err != nil {
		return nil, NewToolError(call.Name, err.Error(), CodeValidation)
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)

		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool.call.panic", "tool_name", call.Name, "recover", r, "stack", string(debug.Stack()))
			err = &core.ToolExecutionError{Name: call.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = impl.Call(core.NewToolContext(ctx, call, e.opts.Logger), args)
	if err != nil {
		return nil, &core.ToolExecutionError{Name: call.Name, Err: err}
	}

	return result, nil
}

// ErrorContent renders a failure as tool message content. A missing tool
// reads "Tool <name> not found"; anything else reads "Error: <message>".
func ErrorContent(err error) string {
	var notFound *core.ToolNotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return "Error: " + toolErr.Message
	}

	var execErr *core.ToolExecutionError
	if errors.As(err, &execErr) {
		return "Error: " + execErr.Err.Error()
	}

	return "Error: " + err.Error()
}

// FormatResult renders a tool result as message content. Strings pass
// through; other values are JSON encoded.
func FormatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case []byte:
		return string(r)
	case fmt.Stringer:
		return r.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}
