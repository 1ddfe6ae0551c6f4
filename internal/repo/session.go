package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SessionStore is a suggest.KeyValueStore backed by the UNLOGGED session_kv
// table. Every key is scoped to one session id, so concurrent CLI sessions
// sharing a database never see each other's cache.
type SessionStore struct {
	db        db
	sessionID string
}

// NewSessionStore returns a SessionStore for sessionID.
func NewSessionStore(db db, sessionID string) *SessionStore {
	return &SessionStore{db: db, sessionID: sessionID}
}

// Get returns the value stored under key.
func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM session_kv WHERE session_id = @session_id AND key = @key`

	var value string
	err := s.db.QueryRow(ctx, q, pgx.NamedArgs{"session_id": s.sessionID, "key": key}).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("repo.SessionStore.Get: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO session_kv (session_id, key, value)
		VALUES (@session_id, @key, @value)
		ON CONFLICT (session_id, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`

	_, err := s.db.Exec(ctx, q, pgx.NamedArgs{"session_id": s.sessionID, "key": key, "value": value})
	if err != nil {
		return fmt.Errorf("repo.SessionStore.Set: %w", err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SessionStore) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM session_kv WHERE session_id = @session_id AND key = @key`

	if _, err := s.db.Exec(ctx, q, pgx.NamedArgs{"session_id": s.sessionID, "key": key}); err != nil {
		return fmt.Errorf("repo.SessionStore.Remove: %w", err)
	}
	return nil
}

// Clear drops every key of this session. Called when a session ends.
func (s *SessionStore) Clear(ctx context.Context) error {
	const q = `DELETE FROM session_kv WHERE session_id = @session_id`

	if _, err := s.db.Exec(ctx, q, pgx.NamedArgs{"session_id": s.sessionID}); err != nil {
		return fmt.Errorf("repo.SessionStore.Clear: %w", err)
	}
	return nil
}

// PurgeSessions deletes entries of any session not written for maxAge and
// returns how many rows were removed.
func PurgeSessions(ctx context.Context, db db, maxAge time.Duration) (int64, error) {
	const q = `DELETE FROM session_kv WHERE updated_at < now() - @max_age::interval`

	tag, err := db.Exec(ctx, q, pgx.NamedArgs{"max_age": fmt.Sprintf("%d seconds", int64(maxAge.Seconds()))})
	if err != nil {
		return 0, fmt.Errorf("repo.PurgeSessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
