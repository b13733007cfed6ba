package store

import (
	"context"
	"fmt"
	"time"
)

// SyncStateTable records the last cache-fill applied per resource type.
const SyncStateTable = "resource_sync_state"

const syncStateTableDDL = `CREATE TABLE IF NOT EXISTS resource_sync_state (
    type       TEXT PRIMARY KEY,
    fills      INTEGER NOT NULL DEFAULT 0,
    items      INTEGER NOT NULL DEFAULT 0,
    removed    INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);`

// SyncState describes the latest cache-fill of one resource type. It is
// reset when the type's tables are rebuilt.
type SyncState struct {
	Type      string
	Fills     int64
	Items     int
	Removed   int
	UpdatedAt time.Time
}

// RecordSync notes a cache-fill of typeName that wrote items rows and
// removed removed rows.
func (s *SQLiteStore) RecordSync(ctx context.Context, typeName string, items, removed int) error {
	if _, err := s.resourceType(typeName); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO resource_sync_state(type, fills, items, removed, updated_at)
VALUES (?, 1, ?, ?, ?)
ON CONFLICT(type) DO UPDATE SET
    fills = fills + 1,
    items = excluded.items,
    removed = excluded.removed,
    updated_at = excluded.updated_at`, typeName, items, removed, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: record sync of %s: %w", typeName, err)
	}
	return nil
}

// SyncState returns the latest cache-fill of typeName; ok is false when the
// type was never filled.
func (s *SQLiteStore) SyncState(ctx context.Context, typeName string) (state SyncState, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, fills, items, removed, updated_at
FROM resource_sync_state WHERE type = ?`, typeName)
	if err != nil {
		return state, false, fmt.Errorf("store: read sync state of %s: %w", typeName, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return state, false, rows.Err()
	}
	var updated int64
	if err := rows.Scan(&state.Type, &state.Fills, &state.Items, &state.Removed, &updated); err != nil {
		return state, false, err
	}
	state.UpdatedAt = time.UnixMilli(updated)
	return state, true, nil
}
