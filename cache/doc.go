// Package cache memoizes the output of handler-shaped callables.
//
// Unlike a plain byte cache it stores the actual rendered result (usually
// html output) and replays it with its content type. Keys are SHA-512
// fingerprints over the handler's evaluated arguments plus contextual
// dimensions: caller identity bucket, locale, route path, deployment
// version, and an optional environment fingerprint.
//
// The Gateway wraps a handler into a drop-in replacement that serves fresh
// stored entries without invoking the handler, writes through on a miss,
// and exposes exact and wildcard prefix invalidation over the path
// hierarchy. Privileged callers can bypass the cache per request via the
// request bypass signal.
package cache
