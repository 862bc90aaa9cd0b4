// Package repotest provides a behavioral test suite shared by every
// simplecatalog.Repository implementation.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Factory returns an empty repository for one subtest
type Factory func(t *testing.T) simplecatalog.Repository

// NewEntry returns a persisted-shape entry for tests
func NewEntry(slug, category, date string) *simplecatalog.Entry {
	return &simplecatalog.Entry{
		Slug:        slug,
		Category:    category,
		Title:       "Title " + slug,
		Description: "Description of " + slug,
		Keywords:    []string{"vector", slug},
		Date:        date,
		FileSize:    "1.0 MB",
	}
}

// Run exercises the repository contract against fresh repositories from newRepo
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		entry := NewEntry("red-car", "Transportation", "2024-06-01")
		entry.Thumbnail = "/asset?key=derived"

		require.NoError(t, repo.CreateEntry(ctx, entry))

		got, err := repo.GetEntry(ctx, "red-car")
		require.NoError(t, err)
		assert.Equal(t, "red-car", got.Slug)
		assert.Equal(t, "Transportation", got.Category)
		assert.Equal(t, "Title red-car", got.Title)
		assert.Equal(t, "Description of red-car", got.Description)
		assert.Equal(t, []string{"vector", "red-car"}, got.Keywords)
		assert.Equal(t, "2024-06-01", got.Date)
		assert.Equal(t, "1.0 MB", got.FileSize)
		assert.Zero(t, got.Downloads)
		assert.Empty(t, got.Thumbnail, "derived fields are not persisted")
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetEntry(ctx, "missing")
		assert.ErrorIs(t, err, simplecatalog.ErrNotFound)
	})

	t.Run("DuplicateSlug", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateEntry(ctx, NewEntry("dup", "Food", "2024-01-01")))

		err := repo.CreateEntry(ctx, NewEntry("dup", "Logo", "2024-02-01"))
		assert.ErrorIs(t, err, simplecatalog.ErrDuplicateSlug)

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Food", entries[0].Category)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		repo := newRepo(t)
		for _, slug := range []string{"a", "b", "c"} {
			require.NoError(t, repo.CreateEntry(ctx, NewEntry(slug, "Food", "2024-01-01")))
		}

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, slugs(entries))
	})

	t.Run("ListEmpty", func(t *testing.T) {
		repo := newRepo(t)
		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		for _, slug := range []string{"a", "b", "c"} {
			require.NoError(t, repo.CreateEntry(ctx, NewEntry(slug, "Food", "2024-01-01")))
		}
		_, err := repo.IncrementDownloads(ctx, "b")
		require.NoError(t, err)

		require.NoError(t, repo.DeleteEntry(ctx, "b"))

		_, err = repo.GetEntry(ctx, "b")
		assert.ErrorIs(t, err, simplecatalog.ErrNotFound)

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, slugs(entries))

		assert.ErrorIs(t, repo.DeleteEntry(ctx, "b"), simplecatalog.ErrNotFound)

		// A recreated slug starts from a fresh counter
		require.NoError(t, repo.CreateEntry(ctx, NewEntry("b", "Logo", "2024-03-01")))
		got, err := repo.GetEntry(ctx, "b")
		require.NoError(t, err)
		assert.Zero(t, got.Downloads)
		assert.Equal(t, "Logo", got.Category)
	})

	t.Run("IncrementDownloads", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateEntry(ctx, NewEntry("pkg", "Icon", "2024-01-01")))

		for i := 1; i <= 5; i++ {
			n, err := repo.IncrementDownloads(ctx, "pkg")
			require.NoError(t, err)
			assert.Equal(t, int64(i), n)
		}

		got, err := repo.GetEntry(ctx, "pkg")
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Downloads)

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(5), entries[0].Downloads)
	})

	t.Run("IncrementMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.IncrementDownloads(ctx, "missing")
		assert.ErrorIs(t, err, simplecatalog.ErrNotFound)
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateEntry(ctx, NewEntry("hot", "Icon", "2024-01-01")))

		const workers, perWorker = 8, 5
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					_, err := repo.IncrementDownloads(ctx, "hot")
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		got, err := repo.GetEntry(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(workers*perWorker), got.Downloads)
	})

	t.Run("ConcurrentCreateSameSlug", func(t *testing.T) {
		repo := newRepo(t)

		const workers = 8
		var created, duplicates atomic.Int32
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				err := repo.CreateEntry(ctx, NewEntry("race", fmt.Sprintf("Cat%d", w), "2024-01-01"))
				switch {
				case err == nil:
					created.Add(1)
				case assert.ErrorIs(t, err, simplecatalog.ErrDuplicateSlug):
					duplicates.Add(1)
				}
			}(w)
		}
		wg.Wait()

		assert.Equal(t, int32(1), created.Load())
		assert.Equal(t, int32(workers-1), duplicates.Load())

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"race"}, slugs(entries))
	})

	t.Run("ConcurrentCreateDistinctSlugs", func(t *testing.T) {
		repo := newRepo(t)

		const workers = 8
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				assert.NoError(t, repo.CreateEntry(ctx, NewEntry(fmt.Sprintf("slug-%d", w), "Food", "2024-01-01")))
			}(w)
		}
		wg.Wait()

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, workers)
	})
}

func slugs(entries []*simplecatalog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Slug
	}
	return out
}
