package core

import (
	"sync"
)

// StepLimiter enforces a maximum number of graph steps per run.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a new limiter with a max number of steps.
// If max == 0, unlimited steps are allowed.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment records one step and reports false once the budget is exceeded.
func (sl *StepLimiter) Increment() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.count++

	return sl.max <= 0 || sl.count <= sl.max
}

// Count returns the number of steps recorded so far, including a rejected one.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Max returns the configured budget.
func (sl *StepLimiter) Max() int { return sl.max }

// Remaining returns how many steps are left before hitting the limit.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max <= 0 {
		return -1 // unlimited
	}

	if sl.count >= sl.max {
		return 0
	}

	return sl.max - sl.count
}
