package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation.
//
// Path queries scan all entries, which is fine for the entry counts an
// in-process cache sees. Larger deployments should use RedisStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves the entry for key. Returns ErrNotFound on miss.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the stored entry.
	cp := *entry
	cp.Payload = append([]byte(nil), entry.Payload...)
	return &cp, nil
}

// Put stores the entry, replacing any previous entry with the same key.
func (s *MemoryStore) Put(_ context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	cp := *entry
	cp.Payload = append([]byte(nil), entry.Payload...)

	s.mu.Lock()
	s.entries[cp.Key] = &cp
	s.mu.Unlock()
	return nil
}

// Delete removes the entries for the given keys. Missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// KeysForPath returns keys of entries whose path equals path.
func (s *MemoryStore) KeysForPath(_ context.Context, path string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, entry := range s.entries {
		if entry.Path == path {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// KeysInRange returns keys of entries with lo < path < hi.
func (s *MemoryStore) KeysInRange(_ context.Context, lo, hi string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, entry := range s.entries {
		if entry.Path > lo && entry.Path < hi {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
