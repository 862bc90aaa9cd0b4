package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/storage/fs"
)

func setupBackend(t *testing.T) (*fs.Backend, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := fs.New(fs.Config{BaseDir: dir})
	require.NoError(t, err)
	return backend, dir
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestFSBackendRoundTrip(t *testing.T) {
	backend, dir := setupBackend(t)
	ctx := context.Background()
	key := "assets/Animals%2FWildlife/fox.zip"

	err := backend.UploadWithParams(ctx, strings.NewReader("zip-bytes"), simplecatalog.UploadParams{
		ObjectKey: key,
		MimeType:  "application/zip",
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "assets", "Animals%2FWildlife", "fox.zip"))
	require.NoError(t, err, "escaped category stays a single directory")

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len("zip-bytes")), meta.Size)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "zip-bytes", string(data))

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, simplecatalog.ErrObjectNotFound)

	_, err = os.Stat(filepath.Join(dir, "assets"))
	assert.True(t, os.IsNotExist(err), "empty directories are cleaned up")
	_, err = os.Stat(dir)
	assert.NoError(t, err, "base directory is kept")
}

func TestFSBackendDeleteMissing(t *testing.T) {
	backend, _ := setupBackend(t)
	assert.NoError(t, backend.Delete(context.Background(), "assets/Food/missing.jpg"))
}

func TestFSBackendRejectsEscapingKeys(t *testing.T) {
	backend, _ := setupBackend(t)
	ctx := context.Background()

	err := backend.Upload(ctx, "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = backend.Download(ctx, "assets/../../outside.txt")
	assert.Error(t, err)
}

func TestFSBackendOverwrite(t *testing.T) {
	backend, _ := setupBackend(t)
	ctx := context.Background()
	key := "assets/Food/burger.jpg"

	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("first")))
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("second")))

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
