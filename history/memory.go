package history

import (
	"context"
	"sync"

	"github.com/ordo-ai/agentgraph/core"
)

// MemoryStore keeps conversations in a process local map. Returned slices
// are copies.
type MemoryStore struct {
	mu    sync.RWMutex
	limit int
	convs map[Key][]core.Message
}

// NewMemoryStore creates an empty store. Load returns at most limit
// messages; zero uses DefaultLimit.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &MemoryStore{limit: limit, convs: make(map[Key][]core.Message)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key Key) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return core.CloneMessages(Trim(s.convs[key], s.limit)), nil
}

// Append implements Store. Stored conversations are capped at twice the
// load limit.
func (s *MemoryStore) Append(_ context.Context, key Key, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := append(s.convs[key], core.CloneMessages(msgs)...)
	if capacity := 2 * s.limit; len(conv) > capacity {
		conv = append([]core.Message(nil), conv[len(conv)-capacity:]...)
	}

	s.convs[key] = conv

	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.convs, key)

	return nil
}

var _ Store = (*MemoryStore)(nil)
