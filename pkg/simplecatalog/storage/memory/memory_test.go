package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	var _ simplecatalog.BlobStore = memorystorage.New()

	backend := memorystorage.New()
	ctx := context.Background()
	testKey := "assets/Food/burger.zip"
	testData := "PK fake zip bytes"

	t.Run("Upload", func(t *testing.T) {
		err := backend.Upload(ctx, testKey, strings.NewReader(testData))
		assert.NoError(t, err)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
		assert.False(t, meta.UpdatedAt.IsZero())
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("UploadWithParams", func(t *testing.T) {
		key := "assets/Food/burger.jpg"
		err := backend.UploadWithParams(ctx, strings.NewReader("jpeg"), simplecatalog.UploadParams{
			ObjectKey: key,
			MimeType:  "image/jpeg",
		})
		require.NoError(t, err)

		meta, err := backend.GetObjectMeta(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", meta.ContentType)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, testKey))

		_, err := backend.Download(ctx, testKey)
		assert.ErrorIs(t, err, simplecatalog.ErrObjectNotFound)
		assert.ErrorIs(t, err, simplecatalog.ErrNotFound)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		assert.NoError(t, backend.Delete(ctx, "assets/none/missing.zip"))
	})

	t.Run("GetObjectMetaMissing", func(t *testing.T) {
		_, err := backend.GetObjectMeta(ctx, "assets/none/missing.zip")
		assert.ErrorIs(t, err, simplecatalog.ErrObjectNotFound)
	})
}
