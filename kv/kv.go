// Package kv provides a small string key-value storage with interchangeable
// backends: a process-local map and a table in the SQLite cache database.
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Backend selects a Storage implementation.
type Backend string

const (
	// BackendMemory keeps values for the lifetime of the process.
	BackendMemory Backend = "memory"
	// BackendSQLite persists values in the cache database.
	BackendSQLite Backend = "sqlite"
)

// ErrUnknownBackend is returned by New for unsupported backends.
var ErrUnknownBackend = errors.New("kv: unknown backend")

// Storage is a string key-value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// New creates the Storage for backend; db is required for BackendSQLite.
func New(ctx context.Context, backend Backend, db *sql.DB) (Storage, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(ctx, db)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
