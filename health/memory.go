package health

import (
	"context"
	"fmt"
	"runtime"
)

// HeapCheckerConfig configures the heap usage checker.
type HeapCheckerConfig struct {
	// WarnBytes is the heap allocation that triggers degraded status.
	// Default: 512 MiB
	WarnBytes uint64

	// CriticalBytes is the heap allocation that triggers unhealthy status.
	// Default: 1 GiB
	CriticalBytes uint64
}

// HeapChecker watches process heap usage. An in-process cache store only
// sheds entries on invalidation, so unbounded heap growth usually means a
// flush strategy is missing.
type HeapChecker struct {
	config HeapCheckerConfig
}

// NewHeapChecker creates a new heap usage checker.
func NewHeapChecker(config ...HeapCheckerConfig) *HeapChecker {
	cfg := HeapCheckerConfig{
		WarnBytes:     512 << 20,
		CriticalBytes: 1 << 30,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.WarnBytes == 0 {
			cfg.WarnBytes = 512 << 20
		}
		if cfg.CriticalBytes <= cfg.WarnBytes {
			cfg.CriticalBytes = cfg.WarnBytes * 2
		}
	}

	return &HeapChecker{config: cfg}
}

// Name returns the name of this checker.
func (c *HeapChecker) Name() string {
	return "heap"
}

// Check reads runtime memory statistics and grades the allocation.
func (c *HeapChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"num_gc":           stats.NumGC,
	}

	switch {
	case stats.HeapAlloc >= c.config.CriticalBytes:
		msg := fmt.Sprintf("heap allocation %d exceeds critical threshold %d", stats.HeapAlloc, c.config.CriticalBytes)
		return Unhealthy(msg, nil).WithDetails(details)
	case stats.HeapAlloc >= c.config.WarnBytes:
		msg := fmt.Sprintf("heap allocation %d exceeds warning threshold %d", stats.HeapAlloc, c.config.WarnBytes)
		return Degraded(msg).WithDetails(details)
	default:
		return Healthy("heap usage within limits").WithDetails(details)
	}
}

// Ensure HeapChecker implements Checker
var _ Checker = (*HeapChecker)(nil)
