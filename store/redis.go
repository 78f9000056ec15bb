package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/respcache/secret"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the optional server password. Supports environment
	// expansion and secretref values, resolved through Secrets.
	Password string

	// Secrets resolves credential references in Addr and Password. A nil
	// resolver still performs strict environment expansion.
	Secrets *secret.Resolver

	// DB is the database number.
	DB int

	// Namespace prefixes every key written by this store.
	// Default: "respcache"
	Namespace string

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration
}

// RedisStore is a Store backed by Redis.
//
// Entries are stored as JSON strings under <namespace>:entry:<key>. Path
// queries are served from a sorted set of <path>\x00<key> members under
// <namespace>:paths, queried with ZRANGEBYLEX so lexicographic range scans
// never touch the entry bodies.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// redisEntry is the JSON shape persisted per entry.
type redisEntry struct {
	Path        string    `json:"path"`
	Payload     []byte    `json:"payload"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// pathSep separates path from key in index members. Paths never contain
// NUL, so the member ordering follows path ordering.
const pathSep = "\x00"

// NewRedisStore connects to Redis and returns a store.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "respcache"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	addr, err := cfg.Secrets.ResolveValue(ctx, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("store: resolve redis addr: %w", err)
	}
	password, err := cfg.Secrets.ResolveValue(ctx, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("store: resolve redis password: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	return &RedisStore{client: client, namespace: cfg.Namespace}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used when the embedding
// application manages the connection, and by tests running against miniredis.
func NewRedisStoreWithClient(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "respcache"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) entryKey(key string) string {
	return s.namespace + ":entry:" + key
}

func (s *RedisStore) indexKey() string {
	return s.namespace + ":paths"
}

// Get retrieves the entry for key. Returns ErrNotFound on miss.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}

	var re redisEntry
	if err := json.Unmarshal(data, &re); err != nil {
		return nil, fmt.Errorf("store: decode entry %s: %w", key, err)
	}

	return &Entry{
		Key:         key,
		Path:        re.Path,
		Payload:     re.Payload,
		ContentType: re.ContentType,
		CreatedAt:   re.CreatedAt,
	}, nil
}

// Put stores the entry and indexes its path, replacing any previous entry
// with the same key. Key and path are written in one pipeline; the key
// already encodes the path, so an overwrite never leaves the index stale.
func (s *RedisStore) Put(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(redisEntry{
		Path:        entry.Path,
		Payload:     entry.Payload,
		ContentType: entry.ContentType,
		CreatedAt:   entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("store: encode entry %s: %w", entry.Key, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.entryKey(entry.Key), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Member: entry.Path + pathSep + entry.Key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis put: %w", err)
	}
	return nil
}

// Delete removes the entries for the given keys and their index members.
// Missing keys are skipped without error.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		entry, err := s.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, s.entryKey(key))
		pipe.ZRem(ctx, s.indexKey(), entry.Path+pathSep+key)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store: redis delete: %w", err)
		}
	}
	return nil
}

// KeysForPath returns keys of entries whose path equals path.
func (s *RedisStore) KeysForPath(ctx context.Context, path string) ([]string, error) {
	// Members for an exact path are path\x00<key>; \x01 bounds them from
	// members of any longer path.
	return s.keysByLex(ctx, "["+path+pathSep, "("+path+"\x01")
}

// KeysInRange returns keys of entries with lo < path < hi.
func (s *RedisStore) KeysInRange(ctx context.Context, lo, hi string) ([]string, error) {
	return s.keysByLex(ctx, "("+lo+"\x01", "("+hi)
}

func (s *RedisStore) keysByLex(ctx context.Context, min, max string) ([]string, error) {
	members, err := s.client.ZRangeByLex(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis path query: %w", err)
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		if i := strings.Index(member, pathSep); i >= 0 {
			keys = append(keys, member[i+1:])
		}
	}
	return keys, nil
}

// Ping probes the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store and Pinger
var (
	_ Store  = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
)
