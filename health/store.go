package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/respcache/store"
)

// StoreCheckerConfig configures the cache store health checker.
type StoreCheckerConfig struct {
	// SentinelKey is the key probed on stores without a native ping.
	// The key is never written; a not-found answer proves the store
	// responds. Default: "health:sentinel"
	SentinelKey string

	// DegradedAfter is the probe latency above which the store is
	// reported degraded rather than healthy. Default: 250ms
	DegradedAfter time.Duration
}

// StoreChecker probes a cache store for liveness.
//
// Stores backed by a remote service implement store.Pinger and are probed
// natively; anything else answers a read of a sentinel key, where a miss is
// as good as a hit.
type StoreChecker struct {
	config StoreCheckerConfig
	store  store.Store
}

// NewStoreChecker creates a health checker for the given store.
func NewStoreChecker(s store.Store, config ...StoreCheckerConfig) *StoreChecker {
	cfg := StoreCheckerConfig{
		SentinelKey:   "health:sentinel",
		DegradedAfter: 250 * time.Millisecond,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.SentinelKey == "" {
			cfg.SentinelKey = "health:sentinel"
		}
		if cfg.DegradedAfter <= 0 {
			cfg.DegradedAfter = 250 * time.Millisecond
		}
	}

	return &StoreChecker{config: cfg, store: s}
}

// Name returns the name of this checker.
func (c *StoreChecker) Name() string {
	return "store"
}

// Check probes the store and grades the answer by latency.
func (c *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()

	err := c.probe(ctx)
	elapsed := time.Since(start)

	details := map[string]any{
		"latency": elapsed.String(),
	}

	if err != nil {
		return Unhealthy("store unreachable", err).WithDetails(details)
	}
	if elapsed > c.config.DegradedAfter {
		msg := fmt.Sprintf("store responding slowly (>%s)", c.config.DegradedAfter)
		return Degraded(msg).WithDetails(details)
	}
	return Healthy("store reachable").WithDetails(details)
}

func (c *StoreChecker) probe(ctx context.Context) error {
	if p, ok := c.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}

	_, err := c.store.Get(ctx, c.config.SentinelKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Ensure StoreChecker implements Checker
var _ Checker = (*StoreChecker)(nil)
