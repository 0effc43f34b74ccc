// Package history persists conversation messages per (user, agent) pair.
//
// History only seeds the message list a run starts from. Graph state is
// never shared between runs; a finished run appends its new messages here.
package history

import (
	"context"
	"fmt"

	"github.com/ordo-ai/agentgraph/core"
)

// DefaultLimit is the number of messages Load returns when no limit is set.
const DefaultLimit = 50

// Key identifies one conversation.
type Key struct {
	UserID string
	Agent  string
}

func (k Key) String() string {
	user := k.UserID
	if user == "" {
		user = "anonymous"
	}

	return fmt.Sprintf("%s:%s", user, k.Agent)
}

// Store is a conversation history backend.
type Store interface {
	// Load returns the most recent messages of a conversation, oldest first.
	Load(ctx context.Context, key Key) ([]core.Message, error)
	// Append adds messages to the end of a conversation.
	Append(ctx context.Context, key Key, msgs ...core.Message) error
	// Clear deletes a conversation.
	Clear(ctx context.Context, key Key) error
}

// Trim keeps at most limit trailing messages. The window never starts with
// a tool result or inside a tool round, since providers reject results
// whose call was cut off; leading messages are dropped up to the first user
// message in the window.
func Trim(msgs []core.Message, limit int) []core.Message {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	for i, m := range msgs {
		if m.Role == core.RoleUser {
			return msgs[i:]
		}
	}

	return nil
}
