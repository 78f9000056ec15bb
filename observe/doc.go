// Package observe provides telemetry for the cache: OpenTelemetry tracing
// and metrics plus structured JSON logging.
//
// The Observer bundles a tracer, a meter, and a logger behind one config.
// Metrics records gateway lookups by outcome (hit, miss, stale, bypass,
// uncacheable), write-throughs, and invalidation sweeps.
package observe
