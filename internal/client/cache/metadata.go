package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Metadata is a small key/value side table that survives Purge. It holds the
// per-user migration flags and the last authenticated user id.

// GetMeta returns the value for key, or nil when the key is absent.
func (m *Mirror) GetMeta(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

// SetMeta stores value under key, replacing any previous value.
func (m *Mirror) SetMeta(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// DeleteMeta removes key; missing keys are a no-op.
func (m *Mirror) DeleteMeta(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}
