package engine

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResContains(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var got sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT res_contains('Production DB', 'db')`).Scan(&got))
	assert.Equal(t, int64(1), got.Int64)

	require.NoError(t, db.QueryRow(`SELECT res_contains('Production DB', 'stage')`).Scan(&got))
	assert.Equal(t, int64(0), got.Int64)

	require.NoError(t, db.QueryRow(`SELECT res_contains(NULL, 'x')`).Scan(&got))
	assert.False(t, got.Valid)
}

func TestResTime(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	// Fractional seconds of different widths must still order numerically.
	var a, b int64
	require.NoError(t, db.QueryRow(`SELECT res_time('2024-01-02T03:04:05.9Z')`).Scan(&a))
	require.NoError(t, db.QueryRow(`SELECT res_time('2024-01-02T03:04:05.123456Z')`).Scan(&b))
	assert.Greater(t, a, b)

	want := time.Date(2024, 1, 2, 3, 4, 5, 900_000_000, time.UTC).UnixMilli()
	assert.Equal(t, want, a)

	var invalid sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT res_time('yesterday')`).Scan(&invalid))
	assert.False(t, invalid.Valid)
}
