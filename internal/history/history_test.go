// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestRecordAndRecent(t *testing.T) {
	store, _ := openTemp(t)

	first := Entry{
		Source:      "acme/data/stocks.csv",
		Destination: "acme/vault/stocks.json",
		Rows:        10,
		Action:      "created",
		CommitSHA:   "aaa111",
		CompletedAt: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	second := Entry{
		Source:      "acme/data/stocks.csv",
		Destination: "acme/vault/stocks.json",
		Rows:        12,
		Action:      "updated",
		CommitSHA:   "bbb222",
		CompletedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Record(first))
	require.NoError(t, store.Record(second))

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "updated", entries[0].Action)
	assert.Equal(t, 12, entries[0].Rows)
	assert.Equal(t, "bbb222", entries[0].CommitSHA)
	assert.Equal(t, "created", entries[1].Action)
	assert.True(t, entries[0].CompletedAt.Equal(second.CompletedAt))
}

func TestRecentLimit(t *testing.T) {
	store, _ := openTemp(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(Entry{
			Source:      "s",
			Destination: "d",
			Rows:        i,
			Action:      "updated",
		}))
	}

	entries, err := store.Recent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 4, entries[0].Rows)
}

func TestZeroCompletedAtFilled(t *testing.T) {
	store, _ := openTemp(t)

	require.NoError(t, store.Record(Entry{Source: "s", Destination: "d", Action: "created"}))

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].CompletedAt.IsZero())
}

func TestPersistsAcrossReopen(t *testing.T) {
	store, path := openTemp(t)
	require.NoError(t, store.Record(Entry{Source: "s", Destination: "d", Rows: 1, Action: "created"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Recent(10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEmptyDatabase(t *testing.T) {
	store, _ := openTemp(t)

	entries, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
