// Package suggest memoizes generated suggestion lists per (trip, category)
// for the lifetime of a session and remembers which candidates have already
// been saved to the trip.
//
// The cache never holds authoritative data. Every backing-store failure,
// including quota errors and corrupt or outdated entries, is absorbed and
// reported to callers as a miss.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pkordes/tripmind/internal/domain"
)

// schemaVersion is bumped whenever the stored JSON layout changes; entries
// written under another version read as absent.
const schemaVersion = 1

const keyPrefix = "tripmind:suggestions:"

// Set is the latest suggestion list for one (trip, category) pair.
type Set struct {
	EntityID    string              `json:"entity_id"`
	Category    domain.Category     `json:"category"`
	Items       []domain.Suggestion `json:"items"`
	Committed   []string            `json:"committed"`
	Preferences string              `json:"preferences,omitempty"`
	FetchedAt   time.Time           `json:"fetched_at"`
}

// IsCommitted reports whether the candidate with itemID has been saved.
func (s Set) IsCommitted(itemID string) bool {
	return slices.Contains(s.Committed, itemID)
}

// Item returns the candidate with the given id.
func (s Set) Item(itemID string) (domain.Suggestion, bool) {
	for _, it := range s.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return domain.Suggestion{}, false
}

type envelope struct {
	Version int `json:"v"`
	Set     Set `json:"set"`
}

// Cache is the session-scoped suggestion cache.
type Cache struct {
	store  KeyValueStore
	logger *slog.Logger
	now    func() time.Time
}

// NewCache returns a Cache writing through store.
func NewCache(store KeyValueStore, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger, now: time.Now}
}

// Key builds the storage key for a pair. Preferences are deliberately not
// part of it: a category holds exactly one latest result set per trip.
func Key(entityID string, category domain.Category) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, entityID, category)
}

// Get returns the cached set, or false when absent or unreadable.
func (c *Cache) Get(ctx context.Context, entityID string, category domain.Category) (Set, bool) {
	key := Key(entityID, category)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.DebugContext(ctx, "suggestion cache read failed", "key", key, "error", err)
		return Set{}, false
	}
	if !ok {
		return Set{}, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.DebugContext(ctx, "suggestion cache entry unreadable", "key", key, "error", err)
		return Set{}, false
	}
	if env.Version != schemaVersion || env.Set.EntityID != entityID || env.Set.Category != category {
		c.logger.DebugContext(ctx, "suggestion cache entry schema mismatch", "key", key, "version", env.Version)
		return Set{}, false
	}
	if env.Set.Committed == nil {
		env.Set.Committed = []string{}
	}
	return env.Set, true
}

// Put overwrites the pair's entry with items. The committed set is reset
// because the new candidates carry new ids. Put is best-effort.
func (c *Cache) Put(ctx context.Context, entityID string, category domain.Category, items []domain.Suggestion, preferences string) Set {
	set := Set{
		EntityID:    entityID,
		Category:    category,
		Items:       slices.Clone(items),
		Committed:   []string{},
		Preferences: preferences,
		FetchedAt:   c.now().UTC(),
	}
	c.write(ctx, set)
	return set
}

// MarkCommitted records that itemID has been saved to the trip. It is
// idempotent, and a no-op when the pair has no cached entry.
func (c *Cache) MarkCommitted(ctx context.Context, entityID string, category domain.Category, itemID string) {
	set, ok := c.Get(ctx, entityID, category)
	if !ok || set.IsCommitted(itemID) {
		return
	}
	set.Committed = append(set.Committed, itemID)
	slices.Sort(set.Committed)
	c.write(ctx, set)
}

// Invalidate drops the pair's entry so the next Get misses.
func (c *Cache) Invalidate(ctx context.Context, entityID string, category domain.Category) {
	key := Key(entityID, category)
	if err := c.store.Remove(ctx, key); err != nil {
		c.logger.DebugContext(ctx, "suggestion cache remove failed", "key", key, "error", err)
	}
}

func (c *Cache) write(ctx context.Context, set Set) {
	key := Key(set.EntityID, set.Category)
	raw, err := json.Marshal(envelope{Version: schemaVersion, Set: set})
	if err != nil {
		c.logger.DebugContext(ctx, "suggestion cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		c.logger.DebugContext(ctx, "suggestion cache write dropped", "key", key, "error", err)
	}
}
