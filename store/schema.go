package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/viant/rescache/schema"
)

// EnsureSchema materializes every type of the registry. A type whose stored
// fingerprint differs from its current layout is dropped and recreated; the
// store is a mirror of the server, so rebuilding only costs a refetch.
func EnsureSchema(ctx context.Context, db *sql.DB, registry *schema.Registry) error {
	if _, err := db.ExecContext(ctx, schemaTableDDL); err != nil {
		return fmt.Errorf("store: create %s: %w", SchemaTable, err)
	}
	if _, err := db.ExecContext(ctx, syncStateTableDDL); err != nil {
		return fmt.Errorf("store: create %s: %w", SyncStateTable, err)
	}
	for _, rt := range registry.Types() {
		if err := migrateType(ctx, db, rt); err != nil {
			return err
		}
	}
	return nil
}

func migrateType(ctx context.Context, db *sql.DB, rt *schema.ResourceType) error {
	want := Fingerprint(rt)
	var have string
	err := db.QueryRowContext(ctx, `SELECT fingerprint FROM resource_schema WHERE type = ?`, rt.Name).Scan(&have)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("store: read fingerprint of %s: %w", rt.Name, err)
	case have == want:
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if have != "" {
		log.Info().Str("type", rt.Name).Msg("resource layout changed, rebuilding local tables")
		for _, stmt := range DropDDL(rt) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("store: drop %s: %w", rt.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_sync_state WHERE type = ?`, rt.Name); err != nil {
			return fmt.Errorf("store: reset sync state of %s: %w", rt.Name, err)
		}
	}
	for _, stmt := range CreateDDL(rt) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create %s: %w", rt.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO resource_schema(type, fingerprint) VALUES (?, ?)
ON CONFLICT(type) DO UPDATE SET fingerprint = excluded.fingerprint, updated_at = CURRENT_TIMESTAMP`, rt.Name, want); err != nil {
		return fmt.Errorf("store: record fingerprint of %s: %w", rt.Name, err)
	}
	return tx.Commit()
}

// Columns returns the introspected column names of table in order.
func Columns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}
