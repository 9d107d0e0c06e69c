package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker/pkg/database"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "subjects")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "subjects", []byte(`[{"id":"1"}]`)))
	got, err := kv.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, kv.Set(ctx, "subjects", []byte(`[]`)))
	got, err = kv.Get(ctx, "subjects")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, kv.Set(ctx, "calendar_events", []byte(`{}`)))
	require.NoError(t, kv.Remove(ctx, "subjects"))
	require.NoError(t, kv.Remove(ctx, "subjects"))
	_, err = kv.Get(ctx, "subjects")
	assert.True(t, errors.Is(err, ErrNotFound))

	got, err = kv.Get(ctx, "calendar_events")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	assert.Error(t, kv.Set(ctx, " ", []byte(`x`)))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseKV(t, store)
	assert.Equal(t, 1, store.Keys())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, store.Set(context.Background(), "k", value))
	value[0] = 'z'
	got, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemoryStore().Set(ctx, "k", nil), context.Canceled)
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)
	exerciseKV(t, store)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(store.Path("../escape")))
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "attendance.db"), "test")
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	exerciseKV(t, store)
}

func TestBoltStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")
	store, err := OpenBolt(path, "")
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "subjects", []byte(`[1]`)))
	require.NoError(t, store.Close())

	store, err = OpenBolt(path, "")
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	got, err := store.Get(context.Background(), "subjects")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func TestSQLStoreWithSQLite(t *testing.T) {
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "attendance.sqlite"))
	require.NoError(t, err)
	store := NewSQLStore(db, "test")
	defer store.Close() //nolint:errcheck
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.EnsureSchema(context.Background()))
	exerciseKV(t, store)
}
