package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// lastSyncKey is the sync_meta key recording when the last full download
// completed.
const lastSyncKey = "last_sync_time"

// SetMeta stores an arbitrary value under key in the sync_meta table,
// serialized as JSON.
func (s *Store) SetMeta(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal meta %q: %w", key, err)
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO sync_meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("failed to set meta %q: %w", key, err)
	}
	return nil
}

// GetMeta loads the value stored under key into out.
// Returns sql.ErrNoRows if the key is absent.
func (s *Store) GetMeta(ctx context.Context, key string, out interface{}) error {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal meta %q: %w", key, err)
	}
	return nil
}

// SetLastSyncTime records when the last full download finished.
func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.SetMeta(ctx, lastSyncKey, t.Format(time.RFC3339))
}

// LastSyncTime returns the recorded last sync time, or the zero time if no
// sync has completed yet.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.GetMeta(ctx, lastSyncKey, &raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync time: %w", err)
	}
	return t, nil
}
