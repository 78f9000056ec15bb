package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome classifies how a cache lookup was resolved.
type Outcome string

const (
	// OutcomeHit means a fresh entry was served from the store.
	OutcomeHit Outcome = "hit"
	// OutcomeMiss means no entry existed and the handler ran.
	OutcomeMiss Outcome = "miss"
	// OutcomeStale means an entry existed but exceeded its freshness window.
	OutcomeStale Outcome = "stale"
	// OutcomeBypass means caching was skipped (disabled, bypass signal, or
	// route not cacheable).
	OutcomeBypass Outcome = "bypass"
	// OutcomeUncacheable means the fingerprint could not be computed.
	OutcomeUncacheable Outcome = "uncacheable"
)

// Metrics records cache gateway activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is best-effort.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one gateway invocation with its outcome.
	RecordLookup(ctx context.Context, path string, outcome Outcome, duration time.Duration)

	// RecordWrite records a write-through to the store.
	RecordWrite(ctx context.Context, path string)

	// RecordFlush records an invalidation sweep and how many entries it removed.
	RecordFlush(ctx context.Context, prefix string, removed int)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	lookupCount  metric.Int64Counter
	writeCount   metric.Int64Counter
	flushCount   metric.Int64Counter
	flushRemoved metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance recording to the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookupCount, err := meter.Int64Counter(
		"cache.lookup.total",
		metric.WithDescription("Total number of cache gateway invocations"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	writeCount, err := meter.Int64Counter(
		"cache.write.total",
		metric.WithDescription("Total number of cache entry writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	flushCount, err := meter.Int64Counter(
		"cache.flush.total",
		metric.WithDescription("Total number of invalidation sweeps"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, err
	}

	flushRemoved, err := meter.Int64Counter(
		"cache.flush.removed",
		metric.WithDescription("Total number of entries removed by invalidation sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.lookup.duration_ms",
		metric.WithDescription("Cache gateway invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		lookupCount:  lookupCount,
		writeCount:   writeCount,
		flushCount:   flushCount,
		flushRemoved: flushRemoved,
		durationHist: durationHist,
	}, nil
}

// RecordLookup records one gateway invocation.
func (m *metricsImpl) RecordLookup(ctx context.Context, path string, outcome Outcome, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("cache.path", path),
		attribute.String("cache.outcome", string(outcome)),
	)

	m.lookupCount.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordWrite records a write-through.
func (m *metricsImpl) RecordWrite(ctx context.Context, path string) {
	m.writeCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.path", path),
	))
}

// RecordFlush records an invalidation sweep.
func (m *metricsImpl) RecordFlush(ctx context.Context, prefix string, removed int) {
	opt := metric.WithAttributes(attribute.String("cache.prefix", prefix))
	m.flushCount.Add(ctx, 1, opt)
	m.flushRemoved.Add(ctx, int64(removed), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordLookup(ctx context.Context, path string, outcome Outcome, duration time.Duration) {
}
func (noopMetrics) RecordWrite(ctx context.Context, path string)               {}
func (noopMetrics) RecordFlush(ctx context.Context, prefix string, removed int) {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics { return noopMetrics{} }

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noopMetrics{}
)
