package tasks

import (
	"context"
	"errors"
)

// Func is a unit of deferred work. It must be idempotent: the scheduler
// guarantees at-least-once execution, not exactly-once.
type Func func(ctx context.Context) error

// Scheduler runs work outside the critical path of the scheduling caller.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: the caller's ctx only bounds hand-off; the work itself runs
//   under the scheduler's own lifecycle context.
// - Errors: Schedule reports hand-off failures only; execution failures are
//   handled by the implementation (retried, logged), never returned here.
type Scheduler interface {
	// Schedule hands fn off for asynchronous execution.
	Schedule(ctx context.Context, name string, fn Func) error
}

// Sentinel errors for scheduling.
var (
	// ErrClosed indicates the scheduler no longer accepts work.
	ErrClosed = errors.New("tasks: scheduler closed")
)

// Inline is a Scheduler that runs work synchronously in the calling
// goroutine. Used in tests and in deployments without a background lane.
type Inline struct{}

// Schedule runs fn immediately. Execution errors are swallowed to honor the
// Scheduler contract; callers needing the error should invoke fn directly.
func (Inline) Schedule(ctx context.Context, _ string, fn Func) error {
	_ = fn(ctx)
	return nil
}

// Ensure Inline implements Scheduler
var _ Scheduler = Inline{}
