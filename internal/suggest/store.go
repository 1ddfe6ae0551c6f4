package suggest

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KeyValueStore is the volatile, session-scoped backing store of a Cache.
// Implementations are best-effort: the Cache absorbs every error they return
// and degrades to a miss.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ErrQuotaExceeded is returned by MemoryStore.Set when a write would push the
// stored bytes past the configured quota.
var ErrQuotaExceeded = errors.New("session store quota exceeded")

// DefaultMaxEntries bounds a MemoryStore when no size is given.
const DefaultMaxEntries = 256

// MemoryStore is an in-process KeyValueStore that lives as long as the
// process. It evicts the least recently used key once maxEntries is reached
// and rejects writes beyond maxBytes, mimicking browser session storage.
type MemoryStore struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, string]
	bytes    int
	maxBytes int
}

// NewMemoryStore returns a MemoryStore holding at most maxEntries keys and,
// when maxBytes > 0, at most maxBytes of keys plus values.
func NewMemoryStore(maxEntries, maxBytes int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &MemoryStore{maxBytes: maxBytes}
	// lru.NewWithEvict only fails for a non-positive size.
	s.entries, _ = lru.NewWithEvict(maxEntries, func(key, value string) {
		s.bytes -= len(key) + len(value)
	})
	return s
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries.Get(key)
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := len(key) + len(value)
	if s.maxBytes > 0 {
		current := s.bytes
		if old, ok := s.entries.Peek(key); ok {
			current -= len(key) + len(old)
		}
		if current+size > s.maxBytes {
			return ErrQuotaExceeded
		}
	}
	// Remove first so the eviction callback accounts for the old value.
	s.entries.Remove(key)
	s.entries.Add(key, value)
	s.bytes += size
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Remove(key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}
