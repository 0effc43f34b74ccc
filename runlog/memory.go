package runlog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps runs in a process local map.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run), now: time.Now}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return ErrConflict
	}

	now := s.now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now
	s.runs[run.ID] = *run

	return nil
}

// Claim implements Store.
func (s *MemoryStore) Claim(_ context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}

	if run.Status != StatusQueued {
		return nil, ErrNotClaimable
	}

	run.Status = StatusRunning
	run.UpdatedAt = s.now().UTC()
	s.runs[id] = run

	return &run, nil
}

// Finish implements Store.
func (s *MemoryStore) Finish(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[run.ID]
	if !ok {
		return ErrNotFound
	}

	stored.Status = run.Status
	stored.Response = run.Response
	stored.ToolCalls = run.ToolCalls
	stored.Steps = run.Steps
	stored.Error = run.Error
	stored.UpdatedAt = s.now().UTC()
	s.runs[run.ID] = stored

	run.UpdatedAt = stored.UpdatedAt

	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &run, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, userID string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []Run

	for _, r := range s.runs {
		if r.UserID == userID {
			runs = append(runs, r)
		}
	}

	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(b.ID, a.ID)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

var _ Store = (*MemoryStore)(nil)
