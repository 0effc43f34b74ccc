package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ordo-ai/agentgraph/core"
)

// ErrScriptExhausted is returned by Scripted when no reply is left.
var ErrScriptExhausted = errors.New("scripted model: no replies left")

// Step is one scripted turn: either a reply or an error.
type Step struct {
	Reply core.Message
	Err   error
}

// Scripted is a deterministic in-memory Model useful for tests and examples.
// It replays Steps in order; when Loop is set the last step repeats forever.
type Scripted struct {
	info  Info
	steps []Step
	loop  bool

	mu       sync.Mutex
	next     int
	requests []Request
}

// NewScripted constructs a Scripted model from replies.
func NewScripted(name string, replies ...core.Message) *Scripted {
	steps := make([]Step, len(replies))
	for i, r := range replies {
		steps[i] = Step{Reply: r}
	}

	return NewScriptedSteps(name, steps...)
}

// NewScriptedSteps constructs a Scripted model that may also fail on some turns.
func NewScriptedSteps(name string, steps ...Step) *Scripted {
	return &Scripted{
		info:  Info{Name: name, Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Loop makes the final step repeat once the script is exhausted.
func (m *Scripted) Loop() *Scripted {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loop = true

	return m
}

// Info implements Model.
func (m *Scripted) Info() Info { return m.info }

// Generate implements Model.
func (m *Scripted) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	if len(req.Messages) == 0 {
		return Response{}, fmt.Errorf("no messages provided")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	idx := m.next
	if idx >= len(m.steps) {
		if !m.loop || len(m.steps) == 0 {
			return Response{}, core.NewProviderError(m.info.Provider, m.info.Name, ErrScriptExhausted)
		}

		idx = len(m.steps) - 1
	}

	m.next++

	step := m.steps[idx]
	if step.Err != nil {
		return Response{}, core.NewProviderError(m.info.Provider, m.info.Name, step.Err)
	}

	reply := step.Reply
	reply.Role = core.RoleAssistant

	if len(reply.ToolCalls) > 0 {
		calls := make([]core.ToolCall, len(reply.ToolCalls))
		for i, c := range reply.ToolCalls {
			if c.ID == "" {
				c.ID = fmt.Sprintf("call_%d_%d", m.next, i)
			}

			calls[i] = c
		}

		reply.ToolCalls = calls
	}

	finish := "stop"
	if reply.HasToolCalls() {
		finish = "tool_calls"
	}

	return Response{Message: reply, FinishReason: finish}, nil
}

// Requests returns a copy of every request received so far.
func (m *Scripted) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Calls returns how many times Generate was invoked.
func (m *Scripted) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Func adapts a plain function to the Model interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context, req Request) (core.Message, error)
}

// Info implements Model.
func (f Func) Info() Info { return Info{Name: f.Name, Provider: "func", SupportsTools: true} }

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req Request) (Response, error) {
	msg, err := f.Fn(ctx, req)
	if err != nil {
		return Response{}, err
	}

	msg.Role = core.RoleAssistant

	return Response{Message: msg}, nil
}
