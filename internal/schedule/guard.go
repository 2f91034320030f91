package schedule

import (
	"context"
	"sync/atomic"
)

// Guard keeps update cycles exclusive.
type Guard interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RunGuard is an in-process guard. The service runs as a single instance,
// so process-local state is enough to keep cycles from overlapping.
type RunGuard struct {
	held atomic.Bool
}

func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// Acquire takes the guard if it is free.
func (g *RunGuard) Acquire(ctx context.Context) (bool, error) {
	return g.held.CompareAndSwap(false, true), nil
}

// Release frees the guard.
func (g *RunGuard) Release(ctx context.Context) error {
	g.held.Store(false)
	return nil
}
