package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no entry exists for the requested key.
	// Callers treat it as an ordinary cache miss.
	ErrNotFound = errors.New("store: entry not found")

	// ErrInvalidEntry indicates an entry that violates the entry invariants.
	ErrInvalidEntry = errors.New("store: entry is invalid")
)

// Entry is the persisted unit of the cache.
//
// Key is the fingerprint digest and primary lookup handle; at most one entry
// exists per key (Put overwrites). Path is the hierarchical route the entry
// was produced for and must start with "/". Entries never self-expire:
// staleness is enforced at read time by the gateway, physical deletion only
// happens through invalidation sweeps.
type Entry struct {
	// Key is the hex-encoded fingerprint digest.
	Key string

	// Path is the logical route the entry was produced for, e.g. "/page/view".
	Path string

	// Payload is the serialized result body.
	Payload []byte

	// ContentType describes how to interpret Payload on replay.
	ContentType string

	// CreatedAt is when the entry was written.
	CreatedAt time.Time

	// Unindexed hints that Payload and ContentType need no secondary
	// indexing. Implementations may ignore it.
	Unindexed bool
}

// Validate checks the entry invariants before a write.
func (e *Entry) Validate() error {
	if e == nil || e.Key == "" {
		return ErrInvalidEntry
	}
	if e.Path == "" || e.Path[0] != '/' {
		return ErrInvalidEntry
	}
	return nil
}

// Store persists cache entries keyed by fingerprint, with ordered queries
// over the path field for prefix invalidation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Writes: Put is an unconditional overwrite, last write wins per key.
// - Errors: Get returns ErrNotFound on miss; any other error is a real
//   store failure and must not be conflated with a miss.
type Store interface {
	// Get retrieves the entry for key. Returns ErrNotFound on miss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores the entry, replacing any existing entry with the same key.
	Put(ctx context.Context, entry *Entry) error

	// Delete removes the entries for the given keys. Idempotent: keys
	// without an entry are skipped without error.
	Delete(ctx context.Context, keys ...string) error

	// KeysForPath returns the keys of all entries whose path equals path.
	KeysForPath(ctx context.Context, path string) ([]string, error)

	// KeysInRange returns the keys of all entries whose path falls strictly
	// between lo and hi in lexicographic byte order.
	KeysInRange(ctx context.Context, lo, hi string) ([]string, error)
}

// Pinger is implemented by stores backed by a remote service that can be
// probed for liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
