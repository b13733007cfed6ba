package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.SyncState(ctx, "target")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordSync(ctx, "target", 10, 0))
	require.NoError(t, s.RecordSync(ctx, "target", 3, 2))

	state, ok, err := s.SyncState(ctx, "target")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "target", state.Type)
	assert.EqualValues(t, 2, state.Fills)
	assert.Equal(t, 3, state.Items)
	assert.Equal(t, 2, state.Removed)
	assert.False(t, state.UpdatedAt.IsZero())

	require.ErrorIs(t, s.RecordSync(ctx, "spaceship", 1, 0), ErrUnknownResourceType)
}
