package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/respcache/observe"
)

// Wildcard is the marker a flush prefix may end in to match a whole
// subtree instead of one exact path.
const Wildcard = "*"

// pathUpperBound bounds wildcard range queries; no real path segment sorts
// above it.
const pathUpperBound = "￿"

// Flush schedules an invalidation sweep for prefix and returns without
// waiting for it. The sweep is idempotent, so the at-least-once semantics
// of the scheduler are safe; a write racing with the sweep may leave an
// entry behind that a repeated flush will still remove.
//
// Examples: "/" flushes the main page (and only that), "/*" everything,
// "/page/*" the whole page subtree, "/page/view" exactly that route.
func (g *Gateway) Flush(ctx context.Context, prefix string) error {
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	return g.cfg.Scheduler.Schedule(ctx, "cache-flush "+prefix, func(ctx context.Context) error {
		_, err := g.FlushNow(ctx, prefix)
		return err
	})
}

// FlushNow runs the invalidation sweep synchronously and reports how many
// entries it removed. Administrative tooling may call it directly.
func (g *Gateway) FlushNow(ctx context.Context, prefix string) (int, error) {
	if !strings.HasPrefix(prefix, "/") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	ctx, span := g.cfg.Tracer.StartSpan(ctx, "flush", prefix)

	removed, err := g.sweep(ctx, prefix)
	g.cfg.Tracer.EndSpan(span, err)
	if err != nil {
		return removed, err
	}

	g.cfg.Metrics.RecordFlush(ctx, prefix, removed)
	g.cfg.Logger.Debug(ctx, "flush succeeded",
		observe.Field{Key: "prefix", Value: prefix},
		observe.Field{Key: "removed", Value: removed},
	)
	return removed, nil
}

func (g *Gateway) sweep(ctx context.Context, prefix string) (int, error) {
	stem, wildcard := strings.CutSuffix(prefix, Wildcard)

	// The exact path deleted is the stem without its trailing separator,
	// so "/page/*" also removes "/page" itself.
	exact := stem
	if wildcard && exact != "/" {
		exact = strings.TrimSuffix(exact, "/")
		if exact == "" {
			exact = "/"
		}
	}

	removed := 0

	keys, err := g.cfg.Store.KeysForPath(ctx, exact)
	if err != nil {
		return removed, err
	}
	if err := g.cfg.Store.Delete(ctx, keys...); err != nil {
		return removed, err
	}
	removed += len(keys)

	if !wildcard {
		return removed, nil
	}

	keys, err = g.cfg.Store.KeysInRange(ctx, stem, stem+pathUpperBound)
	if err != nil {
		return removed, err
	}
	if err := g.cfg.Store.Delete(ctx, keys...); err != nil {
		return removed, err
	}
	removed += len(keys)

	return removed, nil
}
