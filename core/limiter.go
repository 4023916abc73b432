package core

import "sync"

// StepLimiter enforces the step budget of a run: the maximum number of node
// executions (agent or tool) permitted.
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

// Take reserves one step. It returns ErrStepBudgetExhausted without counting
// when the reservation would exceed the budget.
func (sl *StepLimiter) Take() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max > 0 && sl.count >= sl.max {
		return ErrStepBudgetExhausted
	}

	sl.count++

	return nil
}

// Count returns the number of steps taken so far.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Max returns the configured budget (0 means unlimited).
func (sl *StepLimiter) Max() int { return sl.max }
