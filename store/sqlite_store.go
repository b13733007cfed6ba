package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/viant/rescache/query"
	"github.com/viant/rescache/schema"
)

// maxVariables is SQLite's default bind-variable limit per statement.
const maxVariables = 32766

// DefaultBatchRows caps the rows of a single multi-row upsert statement.
const DefaultBatchRows = 500

// SQLiteStore is the SQLite implementation of Store. All writes run in
// transactions on the database's single connection, so operations issued by
// concurrent callers are applied one after another.
type SQLiteStore struct {
	db        *sql.DB
	registry  *schema.Registry
	batchRows int
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithBatchRows sets the maximum rows per upsert statement.
func WithBatchRows(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.batchRows = n
		}
	}
}

// NewSQLiteStore creates a SQLite-backed Store and materializes the tables of
// every registered resource type.
func NewSQLiteStore(ctx context.Context, db *sql.DB, registry *schema.Registry, opts ...Option) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("store: registry is nil")
	}
	s := &SQLiteStore{db: db, registry: registry, batchRows: DefaultBatchRows}
	for _, opt := range opts {
		opt(s)
	}
	if err := EnsureSchema(ctx, db, registry); err != nil {
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Registry returns the schema registry the store was built with.
func (s *SQLiteStore) Registry() *schema.Registry { return s.registry }

func (s *SQLiteStore) resourceType(name string) (*schema.ResourceType, error) {
	rt, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, name)
	}
	return rt, nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, typeName string, rows [][]any) error {
	rt, err := s.resourceType(typeName)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	width := len(rt.Columns())
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrSchemaMismatch, rt.Name, i, len(row), width)
		}
	}

	batch := s.batchRows
	if limit := maxVariables / width; batch > limit {
		batch = limit
	}
	started := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	full, err := tx.PrepareContext(ctx, upsertSQL(rt, batch))
	if err != nil {
		return fmt.Errorf("store: prepare %s upsert: %w", rt.Name, err)
	}
	defer full.Close()

	args := make([]any, 0, batch*width)
	for start := 0; start < len(rows); start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batch, len(rows))
		args = args[:0]
		for _, row := range rows[start:end] {
			args = append(args, row...)
		}
		if end-start == batch {
			_, err = full.ExecContext(ctx, args...)
		} else {
			_, err = tx.ExecContext(ctx, upsertSQL(rt, end-start), args...)
		}
		if err != nil {
			return fmt.Errorf("store: upsert %s: %w", rt.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Str("type", rt.Name).Int("rows", len(rows)).Dur("took", time.Since(started)).Msg("local store insert")
	return nil
}

// InsertPayloads implements Store.
func (s *SQLiteStore) InsertPayloads(ctx context.Context, typeName string, payloads []json.RawMessage) error {
	rt, err := s.resourceType(typeName)
	if err != nil {
		return err
	}
	rows, err := Rows(rt, payloads)
	if err != nil {
		return err
	}
	return s.Insert(ctx, typeName, rows)
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, typeName string, ids []string) error {
	rt, err := s.resourceType(typeName)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	batch := min(s.batchRows*10, maxVariables)
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		stmt, args, err := deleteSQL(rt, ids[start:end])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("store: delete %s: %w", rt.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Str("type", rt.Name).Int("ids", len(ids)).Msg("local store delete")
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, typeName string) error {
	rt, err := s.resourceType(typeName)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", quote(rt.Table())))
	return err
}

// Fetch implements Store.
func (s *SQLiteStore) Fetch(ctx context.Context, spec *query.Spec) ([]Row, error) {
	if spec == nil {
		return nil, fmt.Errorf("store: nil query spec")
	}
	rt, err := s.resourceType(spec.Resource)
	if err != nil {
		return nil, err
	}
	stmt, args, err := fetchSQL(rt, spec)
	if err != nil {
		return nil, err
	}
	return s.FetchRaw(ctx, stmt, args...)
}

// FetchRaw implements Store.
func (s *SQLiteStore) FetchRaw(ctx context.Context, sqlText string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context, spec *query.Spec) (int, error) {
	if spec == nil {
		return 0, fmt.Errorf("store: nil query spec")
	}
	rt, err := s.resourceType(spec.Resource)
	if err != nil {
		return 0, err
	}
	stmt, args, err := countSQL(rt, spec)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Exists implements Store.
func (s *SQLiteStore) Exists(ctx context.Context, typeName, id string) (bool, error) {
	rt, err := s.resourceType(typeName)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? LIMIT 1", quote(rt.Table()), quote(schema.IDAttribute)), id).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Columns returns the introspected column names of table.
func (s *SQLiteStore) Columns(ctx context.Context, table string) ([]string, error) {
	return Columns(ctx, s.db, table)
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
