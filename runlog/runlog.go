// Package runlog records agent runs: who asked which agent what, and how
// the run ended.
package runlog

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusNotConverged Status = "not_converged"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusNotConverged || s == StatusFailed
}

var (
	// ErrNotFound is returned for unknown run ids.
	ErrNotFound = errors.New("run not found")
	// ErrConflict is returned when creating a run whose id exists.
	ErrConflict = errors.New("run already exists")
	// ErrNotClaimable is returned by Claim when the run is not queued.
	ErrNotClaimable = errors.New("run is not queued")
)

// Run is one agent invocation.
type Run struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Agent     string    `json:"agent"`
	Status    Status    `json:"status"`
	Input     string    `json:"input"`
	Response  string    `json:"response,omitempty"`
	ToolCalls int       `json:"tool_calls"`
	Steps     int       `json:"steps"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists runs.
type Store interface {
	// Create inserts a new run and sets its timestamps.
	Create(ctx context.Context, run *Run) error
	// Claim moves a queued run to running and returns it.
	Claim(ctx context.Context, id string) (*Run, error)
	// Finish records the outcome of a run.
	Finish(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	// List returns the most recent runs of a user, newest first.
	List(ctx context.Context, userID string, limit int) ([]Run, error)
}
