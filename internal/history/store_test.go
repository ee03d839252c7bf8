package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecent(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.Append(ctx, Record{
			ProjectDir: "/work/demo",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Attempts:   i + 1,
			Success:    i == 2,
			Message:    "Build completed successfully",
		})
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Newest first.
	assert.Equal(t, 3, recent[0].Attempts)
	assert.True(t, recent[0].Success)
	assert.False(t, recent[1].Success)
	assert.Equal(t, "/work/demo", recent[0].ProjectDir)
	assert.NotEmpty(t, recent[0].ID)
	assert.Equal(t, base.Add(2*time.Minute).UnixMilli(), recent[0].StartedAt.UnixMilli())
}

func TestRecentLimit(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Record{
			ProjectDir: "/work/demo",
			StartedAt:  now.Add(time.Duration(i) * time.Second),
			FinishedAt: now.Add(time.Duration(i) * time.Second),
			Attempts:   1,
			Success:    true,
			Message:    "ok",
		}))
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(context.Background(), Record{
		ProjectDir: "/work/demo",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Attempts:   1,
		Success:    true,
		Message:    "ok",
	}))

	recent, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestPreservesExplicitID(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	err = store.Append(context.Background(), Record{
		ID:         "fixed-id",
		ProjectDir: "/work/demo",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	})
	require.NoError(t, err)

	recent, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fixed-id", recent[0].ID)
}
