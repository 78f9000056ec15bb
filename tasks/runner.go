package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/respcache/observe"
)

// RunnerConfig configures the background runner.
type RunnerConfig struct {
	// Workers is the number of concurrent job executors.
	// Default: 4
	Workers int

	// QueueSize bounds the number of jobs waiting for a worker. Schedule
	// blocks when the queue is saturated.
	// Default: 256
	QueueSize int

	// MaxAttempts is the number of tries per job (including the first).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier between attempts.
	// Default: 2.0
	Multiplier float64

	// Logger receives job failure reports. Default: no-op.
	Logger observe.Logger
}

// job pairs a scheduled function with its identity for logging.
type job struct {
	id   string
	name string
	fn   Func
}

// Runner executes scheduled work on a pool of background goroutines,
// retrying failed jobs with exponential backoff.
type Runner struct {
	cfg    RunnerConfig
	jobs   chan job
	group  *errgroup.Group
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewRunner starts a background runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	r := &Runner{
		cfg:    cfg,
		jobs:   make(chan job, cfg.QueueSize),
		group:  group,
		cancel: cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		group.Go(func() error {
			r.work(ctx)
			return nil
		})
	}

	return r
}

// Schedule hands fn off to the worker pool. It blocks only when the queue
// is saturated, and fails with ErrClosed after Close.
func (r *Runner) Schedule(ctx context.Context, name string, fn Func) error {
	// The read lock keeps Close from closing the channel mid-send.
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}

	j := job{id: uuid.NewString(), name: name, fn: fn}
	select {
	case r.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, waits for queued jobs to finish, and tears
// down the workers.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.jobs)
	err := r.group.Wait()
	r.cancel()
	return err
}

func (r *Runner) work(ctx context.Context) {
	for {
		select {
		case j, ok := <-r.jobs:
			if !ok {
				return
			}
			r.run(ctx, j)
		case <-ctx.Done():
			return
		}
	}
}

// run executes one job with backoff retries. Jobs are idempotent, so a
// retry after a partial failure is safe.
func (r *Runner) run(ctx context.Context, j job) {
	delay := r.cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		err := j.fn(ctx)
		if err == nil {
			return
		}

		if attempt >= r.cfg.MaxAttempts {
			r.cfg.Logger.Error(ctx, "deferred job failed",
				observe.Field{Key: "job", Value: j.name},
				observe.Field{Key: "job_id", Value: j.id},
				observe.Field{Key: "attempts", Value: attempt},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return
		}

		r.cfg.Logger.Warn(ctx, "deferred job retrying",
			observe.Field{Key: "job", Value: j.name},
			observe.Field{Key: "job_id", Value: j.id},
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "error", Value: err.Error()},
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}

// Ensure Runner implements Scheduler
var _ Scheduler = (*Runner)(nil)
