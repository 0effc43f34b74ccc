package graph

import (
	"context"
	"sync"
	"time"

	"github.com/ordo-ai/agentgraph/logging"
)

// CallbackType defines the lifecycle points where callbacks run.
//
// Callbacks are executed synchronously on the run goroutine. A callback
// returning an error aborts the run with that error.
type CallbackType string

const (
	// CallbackBeforeNode is triggered before a node executes.
	CallbackBeforeNode CallbackType = "before_node"

	// CallbackAfterNode is triggered after a node's update has been merged.
	CallbackAfterNode CallbackType = "after_node"

	// CallbackOnRoute is triggered after an outgoing edge has been resolved.
	CallbackOnRoute CallbackType = "on_route"

	// CallbackRunEnd is triggered once when a run stops, for any reason.
	// Errors returned from run-end callbacks are ignored.
	CallbackRunEnd CallbackType = "run_end"
)

// CallbackContext carries the information available at a lifecycle point.
type CallbackContext struct {
	// Graph is the name of the running graph.
	Graph string
	// Node is the node being executed. For CallbackOnRoute it is the source
	// node and Target is the resolved destination.
	Node   string
	Target string
	// Step is the 1-based step number of Node.
	Step int
	// State is the state before the node for CallbackBeforeNode and after
	// the merge otherwise.
	State State
	// Update is the node's partial state (CallbackAfterNode only).
	Update   *Update
	Duration time.Duration
	// Err is set for CallbackRunEnd when the run failed.
	Err          error
	CallbackType CallbackType
}

// Callback defines the interface for run lifecycle hooks.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic. Returning an error aborts the run.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	trace := NewFunctionCallback(CallbackAfterNode, func(ctx context.Context, cc *CallbackContext) error {
//	    fmt.Printf("%s -> step %d\n", cc.Node, cc.Step)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds callbacks by type and executes them in registration
// order. It is safe for concurrent registration and execution, so one
// manager can be shared by every graph of an agent.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs all callbacks registered for callbackType. The first
// error stops execution and is returned. A nil manager is a no-op.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}

	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards node and run lifecycle events to a GraphLogger.
type LoggingCallback struct {
	callbackType CallbackType
	logger       *logging.GraphLogger
}

// NewLoggingCallback creates a logging callback for callbackType.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logging.NewGraphLogger(logger).WithComponent("graph"),
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event.
func (c *LoggingCallback) Execute(_ context.Context, cc *CallbackContext) error {
	switch cc.CallbackType {
	case CallbackAfterNode:
		c.logger.LogNodeExecution(cc.Node, cc.Step, cc.Duration, nil)
	case CallbackOnRoute:
		c.logger.Debug("graph.edge", "graph", cc.Graph, "from", cc.Node, "to", cc.Target)
	case CallbackRunEnd:
		c.logger.LogRun(cc.Graph, cc.Step, cc.Duration, cc.Err)
	default:
		c.logger.Debug("graph.node.started", "graph", cc.Graph, "node", cc.Node, "step", cc.Step)
	}

	return nil
}
