package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/logging"
)

// SafeOptions configures a Safe gateway.
type SafeOptions struct {
	// Timeout bounds each Generate call. Zero disables the per-call deadline.
	Timeout time.Duration
	// Logger receives model.call.* events.
	Logger logging.Logger
	// ErrorText renders the synthetic reply for a failed call.
	ErrorText func(err error) string
}

// Safe wraps a Model so that provider failures surface as an assistant
// message instead of an error, letting every graph reach its terminal node.
// Cancellation of the caller's context is still returned as an error.
type Safe struct {
	model  Model
	opts   SafeOptions
	logger *logging.GraphLogger
}

// NewSafe wraps m.
func NewSafe(m Model, optFns ...func(o *SafeOptions)) *Safe {
	opts := SafeOptions{
		Timeout:   60 * time.Second,
		ErrorText: DefaultErrorText,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ErrorText == nil {
		opts.ErrorText = DefaultErrorText
	}

	return &Safe{
		model:  m,
		opts:   opts,
		logger: logging.NewGraphLogger(opts.Logger).WithComponent("model"),
	}
}

// DefaultErrorText is the reply used when a provider call fails.
func DefaultErrorText(err error) string {
	return fmt.Sprintf("Sorry, I could not reach the language model: %v", err)
}

// Info implements Model.
func (s *Safe) Info() Info { return s.model.Info() }

// Generate implements Model. The returned error is non-nil only when the
// parent context is done.
func (s *Safe) Generate(ctx context.Context, req Request) (Response, error) {
	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)

		defer cancel()
	}

	start := time.Now()
	resp, err := s.model.Generate(callCtx, req)

	s.logger.LogModelCall(s.model.Info().Name, len(resp.Message.ToolCalls), time.Since(start), err)

	if err == nil {
		resp.Message.Role = core.RoleAssistant
		return resp, nil
	}

	if ctx.Err() != nil {
		return Response{}, ctx.Err()
	}

	var pe *core.ProviderError
	if !errors.As(err, &pe) {
		err = core.NewProviderError(s.model.Info().Provider, s.model.Info().Name, err)
	}

	return Response{
		Message:      core.NewAssistantMessage(s.opts.ErrorText(err)),
		FinishReason: "error",
	}, nil
}
