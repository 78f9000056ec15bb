package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/request"
	"github.com/jonwraymond/respcache/store"
	"github.com/jonwraymond/respcache/tasks"
)

// Handler is the handler shape the gateway wraps. The wrapped replacement
// has the identical type, so callers cannot tell a cached handler from a
// plain one.
type Handler func(ctx context.Context, args []any, kwargs map[string]any) ([]byte, error)

// Config holds process-wide gateway configuration. Set once at construction
// and read-only afterwards; there is no ambient global state.
type Config struct {
	// Store persists cache entries. Required.
	Store store.Store

	// Scheduler runs invalidation sweeps off the request path.
	// Default: tasks.Inline (synchronous).
	Scheduler tasks.Scheduler

	// Disabled turns the whole cache off: every wrapped handler calls
	// through without touching the store.
	Disabled bool

	// EnvironmentKey optionally folds a process-environment fingerprint
	// into every key. A returned error marks the invocation uncacheable,
	// never a wrong entry.
	EnvironmentKey func(ctx context.Context) (string, error)

	// Version reports the current deployment version, which is always
	// folded into keys so entries never leak across deployments. A lookup
	// failure degrades to the empty string with a logged warning.
	Version func(ctx context.Context) (string, error)

	// CoalesceMisses collapses concurrent misses for the same key into a
	// single handler invocation. Off by default: the design accepts
	// redundant work over coordination, this flag trades the stampede risk
	// the other way.
	CoalesceMisses bool

	// Logger, Metrics, and Tracer default to no-ops.
	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Options configures one wrapped handler.
type Options struct {
	// Routes are the route paths caching is enabled for. A handler can be
	// reachable under several paths (e.g. "/page/view" and
	// "/pdf/page/view") and should not necessarily be cached under all of
	// them. Required, each must start with "/".
	Routes []string

	// Sensitivity governs identity partitioning of entries.
	Sensitivity Sensitivity

	// LocaleSensitive caches separately per resolved request locale.
	LocaleSensitive bool

	// EvaluatedArgs is the complete allowlist of parameter names whose
	// values influence the handler output.
	EvaluatedArgs []string

	// MaxAge is how long an entry is served after it was written. Zero
	// means forever (until flushed). A stale entry is not deleted, only
	// recomputed on the next invocation.
	MaxAge time.Duration

	// Signature declares the handler's positional parameter names and
	// defaults.
	Signature Signature
}

// Gateway wraps handlers with fingerprint-keyed result caching.
type Gateway struct {
	cfg    Config
	flight singleflight.Group
}

// flightResult carries a computed payload through a coalesced miss.
type flightResult struct {
	payload     []byte
	contentType string
}

// NewGateway creates a gateway from the given configuration.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = tasks.Inline{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observe.NopTracer()
	}

	return &Gateway{cfg: cfg}, nil
}

// Wrap returns a drop-in replacement for h that serves cached results when
// possible. Only routes listed in opts.Routes are ever persisted.
func (g *Gateway) Wrap(h Handler, opts Options) (Handler, error) {
	if len(opts.Routes) == 0 {
		return nil, ErrNoRoutes
	}
	routes := make(map[string]bool, len(opts.Routes))
	for _, route := range opts.Routes {
		if !strings.HasPrefix(route, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRoute, route)
		}
		routes[route] = true
	}

	fp, err := NewFingerprinter(
		opts.Signature,
		opts.Sensitivity,
		opts.LocaleSensitive,
		opts.EvaluatedArgs,
		g.cfg.EnvironmentKey,
		g.cfg.Version,
		g.cfg.Logger,
	)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, args []any, kwargs map[string]any) ([]byte, error) {
		return g.serve(ctx, h, fp, routes, opts.MaxAge, args, kwargs)
	}, nil
}

func (g *Gateway) serve(
	ctx context.Context,
	h Handler,
	fp *Fingerprinter,
	routes map[string]bool,
	maxAge time.Duration,
	args []any,
	kwargs map[string]any,
) ([]byte, error) {
	start := time.Now()
	req := request.FromContext(ctx)

	if g.cfg.Disabled || req == nil || req.Bypass {
		if g.cfg.Disabled {
			g.cfg.Logger.Debug(ctx, "caching is disabled by config")
		}
		g.cfg.Metrics.RecordLookup(ctx, "", observe.OutcomeBypass, time.Since(start))
		return h(ctx, args, kwargs)
	}

	path := req.Path()
	log := g.cfg.Logger.WithRoute(path)

	if !routes[path] {
		// Possibly a sub-render this handler is reachable under but was
		// not enabled for.
		log.Debug(ctx, "route not enabled for caching")
		g.cfg.Metrics.RecordLookup(ctx, path, observe.OutcomeBypass, time.Since(start))
		return h(ctx, args, kwargs)
	}

	ctx, span := g.cfg.Tracer.StartSpan(ctx, "lookup", path)

	key, err := fp.Key(ctx, path, args, kwargs)
	if errors.Is(err, ErrUncacheable) {
		g.cfg.Tracer.EndSpan(span, nil)
		log.Debug(ctx, "invocation is uncacheable", observe.Field{Key: "reason", Value: err.Error()})
		g.cfg.Metrics.RecordLookup(ctx, path, observe.OutcomeUncacheable, time.Since(start))
		return h(ctx, args, kwargs)
	}
	if err != nil {
		g.cfg.Tracer.EndSpan(span, err)
		return nil, err
	}

	entry, err := g.cfg.Store.Get(ctx, key)
	switch {
	case err == nil:
		if maxAge == 0 || time.Since(entry.CreatedAt) < maxAge {
			req.SetContentType(entry.ContentType)
			g.cfg.Tracer.EndSpan(span, nil)
			log.Debug(ctx, "served from cache", observe.Field{Key: "key", Value: key})
			g.cfg.Metrics.RecordLookup(ctx, path, observe.OutcomeHit, time.Since(start))
			return entry.Payload, nil
		}
		// Entry exists but exceeded its freshness window: recompute and
		// overwrite. The stale entry stays in storage until then.
	case errors.Is(err, store.ErrNotFound):
		entry = nil
	default:
		// A real store failure must not silently degrade to "run
		// uncached": surface it.
		g.cfg.Tracer.EndSpan(span, err)
		return nil, err
	}

	outcome := observe.OutcomeMiss
	if entry != nil {
		outcome = observe.OutcomeStale
	}

	payload, contentType, err := g.compute(ctx, h, req, key, path, args, kwargs)
	g.cfg.Tracer.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	req.SetContentType(contentType)
	log.Debug(ctx, "cache miss, entry updated", observe.Field{Key: "key", Value: key})
	g.cfg.Metrics.RecordLookup(ctx, path, outcome, time.Since(start))
	return payload, nil
}

// compute runs the handler and writes the result through to the store.
// Concurrent misses for the same key may both compute and both write; last
// write wins and the entries are identical. With CoalesceMisses set, they
// share one computation instead.
func (g *Gateway) compute(
	ctx context.Context,
	h Handler,
	req *request.Request,
	key, path string,
	args []any,
	kwargs map[string]any,
) ([]byte, string, error) {
	if !g.cfg.CoalesceMisses {
		return g.computeOnce(ctx, h, req, key, path, args, kwargs)
	}

	v, err, _ := g.flight.Do(key, func() (any, error) {
		payload, contentType, err := g.computeOnce(ctx, h, req, key, path, args, kwargs)
		if err != nil {
			return nil, err
		}
		return flightResult{payload: payload, contentType: contentType}, nil
	})
	if err != nil {
		return nil, "", err
	}

	res := v.(flightResult)
	return res.payload, res.contentType, nil
}

func (g *Gateway) computeOnce(
	ctx context.Context,
	h Handler,
	req *request.Request,
	key, path string,
	args []any,
	kwargs map[string]any,
) ([]byte, string, error) {
	payload, err := h(ctx, args, kwargs)
	if err != nil {
		// Errors are not cached.
		return nil, "", err
	}

	contentType := req.ContentType()
	entry := &store.Entry{
		Key:         key,
		Path:        path,
		Payload:     payload,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
		Unindexed:   true,
	}
	if err := g.cfg.Store.Put(ctx, entry); err != nil {
		return nil, "", err
	}
	g.cfg.Metrics.RecordWrite(ctx, path)

	return payload, contentType, nil
}
