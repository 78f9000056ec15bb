// Package tasks runs idempotent work outside the request critical path.
//
// The cache schedules invalidation sweeps here so a flush never blocks the
// request that triggered it. Execution is at-least-once: failed jobs are
// retried with backoff, which is safe because sweeps are idempotent.
package tasks
