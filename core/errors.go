package core

import (
	"errors"
	"fmt"
)

// ErrNotConverged is matched (via errors.Is) by every NonConvergenceError.
var ErrNotConverged = errors.New("run did not converge")

// ProviderError reports that a model provider call failed.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Model, e.Err)
	}

	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err. A nil err yields nil.
func NewProviderError(provider, model string, err error) error {
	if err == nil {
		return nil
	}

	return &ProviderError{Provider: provider, Model: model, Err: err}
}

// ToolNotFoundError reports a tool call naming an unregistered tool.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string { return fmt.Sprintf("Tool %s not found", e.Name) }

// ToolExecutionError reports a failing tool implementation.
type ToolExecutionError struct {
	Name string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// NonConvergenceError is returned when a run exhausts its step budget
// before reaching the terminal node.
type NonConvergenceError struct {
	Graph    string
	MaxSteps int
	LastNode string
}

func (e *NonConvergenceError) Error() string {
	name := e.Graph
	if name == "" {
		name = "graph"
	}

	return fmt.Sprintf("%s exceeded step budget of %d (last node %q)", name, e.MaxSteps, e.LastNode)
}

// Is makes errors.Is(err, ErrNotConverged) hold.
func (e *NonConvergenceError) Is(target error) bool { return target == ErrNotConverged }

// IsNotConverged reports whether err signals a non-converged run.
func IsNotConverged(err error) bool { return errors.Is(err, ErrNotConverged) }
