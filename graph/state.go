package graph

import (
	"slices"

	"github.com/ordo-ai/agentgraph/core"
)

// State is the closed set of channels threaded through a run.
//
// Messages only grows: updates are concatenated, never replace it. Next and
// LastResult are last-write-wins; an update that leaves them nil keeps the
// previous value.
type State struct {
	Messages []core.Message `json:"messages"`
	// Next is the latest routing decision (router graphs only).
	Next string `json:"next,omitempty"`
	// LastResult is the final text of the last worker that ran (router graphs only).
	LastResult string `json:"last_result,omitempty"`
}

// NewState returns a State seeded with msgs.
func NewState(msgs ...core.Message) State {
	return State{Messages: core.CloneMessages(msgs)}
}

// Update is the partial state returned by a node.
type Update struct {
	Messages   []core.Message
	Next       *string
	LastResult *string
}

// Apply merges u into s and returns the new state. s is not modified.
func (s State) Apply(u Update) State {
	out := s

	if len(u.Messages) > 0 {
		out.Messages = slices.Concat(s.Messages, u.Messages)
	}

	if u.Next != nil {
		out.Next = *u.Next
	}

	if u.LastResult != nil {
		out.LastResult = *u.LastResult
	}

	return out
}

// LastMessage returns the final message of the state.
func (s State) LastMessage() (core.Message, bool) {
	return core.LastMessage(s.Messages)
}

// String returns a pointer to v, for setting last-write-wins channels.
func String(v string) *string { return &v }
