package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/badger"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/repotest"
)

func TestBadgerRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) simplecatalog.Repository {
		repo, err := badger.Open(badger.Config{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := badger.Open(badger.Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, repo.CreateEntry(ctx, repotest.NewEntry("a", "Food", "2024-01-01")))
	require.NoError(t, repo.CreateEntry(ctx, repotest.NewEntry("b", "Food", "2024-06-01")))
	_, err = repo.IncrementDownloads(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = badger.Open(badger.Config{Dir: dir})
	require.NoError(t, err)
	defer repo.Close()

	entries, err := repo.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Slug)
	assert.Equal(t, "a", entries[1].Slug)
	assert.Equal(t, int64(1), entries[1].Downloads)
}

func TestBadgerOpenRequiresDir(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	assert.Error(t, err)
}

func TestBadgerCanceledContext(t *testing.T) {
	repo, err := badger.Open(badger.Config{InMemory: true})
	require.NoError(t, err)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.ListEntries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
