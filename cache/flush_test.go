package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jonwraymond/respcache/store"
	"github.com/jonwraymond/respcache/tasks"
)

// seedPaths stores one entry per path and returns the gateway over that
// store.
func seedPaths(t *testing.T, paths ...string) (*Gateway, *store.MemoryStore) {
	t.Helper()

	g, mem := newTestGateway(t, Config{})
	for i, path := range paths {
		err := mem.Put(context.Background(), &store.Entry{
			Key:         fmt.Sprintf("key-%d", i),
			Path:        path,
			Payload:     []byte("body"),
			ContentType: "text/html",
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Put(%q) error = %v", path, err)
		}
	}
	return g, mem
}

// remainingPaths lists the distinct paths still stored, sorted.
func remainingPaths(t *testing.T, mem *store.MemoryStore) []string {
	t.Helper()

	keys, err := mem.KeysInRange(context.Background(), "", pathUpperBound)
	if err != nil {
		t.Fatalf("KeysInRange() error = %v", err)
	}
	seen := map[string]bool{}
	for _, key := range keys {
		entry, err := mem.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", key, err)
		}
		seen[entry.Path] = true
	}
	var paths []string
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func TestGateway_FlushNow(t *testing.T) {
	seed := []string{"/", "/page", "/page/view", "/page/view/sub", "/pageX"}

	tests := []struct {
		name        string
		prefix      string
		wantRemoved int
		wantLeft    []string
	}{
		{
			name:        "exact path",
			prefix:      "/page/view",
			wantRemoved: 1,
			wantLeft:    []string{"/", "/page", "/page/view/sub", "/pageX"},
		},
		{
			name:        "subtree including stem",
			prefix:      "/page/*",
			wantRemoved: 3,
			wantLeft:    []string{"/", "/pageX"},
		},
		{
			name:        "root is exact only",
			prefix:      "/",
			wantRemoved: 1,
			wantLeft:    []string{"/page", "/page/view", "/page/view/sub", "/pageX"},
		},
		{
			name:        "everything",
			prefix:      "/*",
			wantRemoved: 5,
			wantLeft:    nil,
		},
		{
			name:        "no matches",
			prefix:      "/users/*",
			wantRemoved: 0,
			wantLeft:    seed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, mem := seedPaths(t, seed...)

			removed, err := g.FlushNow(context.Background(), tt.prefix)
			if err != nil {
				t.Fatalf("FlushNow(%q) error = %v", tt.prefix, err)
			}
			if removed != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", removed, tt.wantRemoved)
			}

			left := remainingPaths(t, mem)
			if len(left) != len(tt.wantLeft) {
				t.Fatalf("remaining paths = %v, want %v", left, tt.wantLeft)
			}
			for i := range left {
				if left[i] != tt.wantLeft[i] {
					t.Fatalf("remaining paths = %v, want %v", left, tt.wantLeft)
				}
			}
		})
	}
}

func TestGateway_FlushIdempotent(t *testing.T) {
	g, mem := seedPaths(t, "/page", "/page/view")

	if removed, err := g.FlushNow(context.Background(), "/page/*"); err != nil || removed != 2 {
		t.Fatalf("first FlushNow() = %d, %v, want 2, nil", removed, err)
	}
	if removed, err := g.FlushNow(context.Background(), "/page/*"); err != nil || removed != 0 {
		t.Errorf("repeated FlushNow() = %d, %v, want 0, nil", removed, err)
	}
	if mem.Len() != 0 {
		t.Errorf("stored entries = %d, want 0", mem.Len())
	}
}

func TestGateway_FlushInvalidPrefix(t *testing.T) {
	g, _ := seedPaths(t, "/page")

	if err := g.Flush(context.Background(), "page/*"); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("Flush() error = %v, want ErrInvalidPrefix", err)
	}
	if _, err := g.FlushNow(context.Background(), "page/*"); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("FlushNow() error = %v, want ErrInvalidPrefix", err)
	}
}

// recordingScheduler captures scheduled work without running it.
type recordingScheduler struct {
	names []string
	fns   []tasks.Func
}

func (s *recordingScheduler) Schedule(ctx context.Context, name string, fn tasks.Func) error {
	s.names = append(s.names, name)
	s.fns = append(s.fns, fn)
	return nil
}

func TestGateway_FlushIsScheduled(t *testing.T) {
	sched := &recordingScheduler{}

	mem := store.NewMemoryStore()
	err := mem.Put(context.Background(), &store.Entry{
		Key:       "k",
		Path:      "/page",
		Payload:   []byte("body"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	g, err := NewGateway(Config{Store: mem, Scheduler: sched})
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	if err := g.Flush(context.Background(), "/page/*"); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	// Nothing removed until the scheduler runs the sweep.
	if mem.Len() != 1 {
		t.Fatalf("stored entries before sweep = %d, want 1", mem.Len())
	}
	if len(sched.fns) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(sched.fns))
	}
	if err := sched.fns[0](context.Background()); err != nil {
		t.Fatalf("sweep error = %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("stored entries after sweep = %d, want 0", mem.Len())
	}
}
