package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('kv','audit_entries')").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestKVPutGetDelete(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	_, err = store.Get(ctx, "auth.token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "auth.token", "first"))
	v, err := store.Get(ctx, "auth.token")
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	// Put replaces.
	require.NoError(t, store.Put(ctx, "auth.token", "second"))
	v, err = store.Get(ctx, "auth.token")
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	require.NoError(t, store.Delete(ctx, "auth.token"))
	_, err = store.Get(ctx, "auth.token")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, store.Delete(ctx, "auth.token"))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "copilot.db")
	ctx := context.Background()

	s1, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "auth.token", "tok"))
	require.NoError(t, s1.Close())

	s2, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	v, err := s2.Get(ctx, "auth.token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}
