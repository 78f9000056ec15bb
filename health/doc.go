// Package health provides liveness and readiness checks for a cache
// deployment.
//
// StoreChecker probes the configured entry store, natively for stores that
// implement store.Pinger and via a sentinel read otherwise, grading slow
// answers as degraded. HeapChecker watches process heap growth, which for
// an in-process store is the early sign of a missing flush strategy. An
// Aggregator fans the registered checks out in parallel and folds their
// results into one overall status, exposed over HTTP by the handlers in
// this package.
package health
