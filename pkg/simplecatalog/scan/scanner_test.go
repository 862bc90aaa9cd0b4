package scan_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
	memoryrepo "github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/scan"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

func setupScanner(t *testing.T) (*scan.Scanner, simplecatalog.Service, *memorystorage.Backend) {
	t.Helper()
	blobs := memorystorage.New()
	svc, err := simplecatalog.New(
		simplecatalog.WithRepository(memoryrepo.New()),
		simplecatalog.WithBlobStore(blobs),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	for _, e := range []struct{ slug, category string }{
		{"red-car", "Transportation"},
		{"blue-bus", "Transportation"},
		{"apple", "Food"},
	} {
		_, err := svc.Ingest(context.Background(), simplecatalog.IngestRequest{
			MetadataName: e.slug + ".json",
			Metadata:     strings.NewReader(`{"category":"` + e.category + `","title":"` + e.slug + `"}`),
			Image:        strings.NewReader("jpeg"),
			Package:      strings.NewReader("zip"),
		})
		require.NoError(t, err)
	}
	return scan.New(svc), svc, blobs
}

func TestScan_ForEachVisitsIndexOrder(t *testing.T) {
	scanner, _, _ := setupScanner(t)

	var seen []string
	result, err := scanner.ForEach(context.Background(), "", func(ctx context.Context, e *simplecatalog.Entry) error {
		seen = append(seen, e.Slug)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"apple", "blue-bus", "red-car"}, seen)
	assert.Equal(t, int64(3), result.TotalFound)
	assert.Equal(t, int64(3), result.TotalProcessed)
	assert.Zero(t, result.TotalFailed)
}

func TestScan_CategoryFilter(t *testing.T) {
	scanner, _, _ := setupScanner(t)

	var seen []string
	_, err := scanner.ForEach(context.Background(), "transportation", func(ctx context.Context, e *simplecatalog.Entry) error {
		seen = append(seen, e.Slug)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"blue-bus", "red-car"}, seen)
}

func TestScan_FailuresAreCounted(t *testing.T) {
	scanner, _, _ := setupScanner(t)

	result, err := scanner.ForEach(context.Background(), "all", func(ctx context.Context, e *simplecatalog.Entry) error {
		if e.Category == "Food" {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalProcessed)
	assert.Equal(t, int64(1), result.TotalFailed)
	assert.Equal(t, []string{"apple"}, result.FailedSlugs)
}

func TestScan_DryRunAndProgress(t *testing.T) {
	scanner, _, _ := setupScanner(t)

	var reports [][2]int64
	result, err := scanner.Scan(context.Background(), scan.ScanOptions{
		DryRun:    true,
		BatchSize: 2,
		OnProgress: func(processed, total int64) {
			reports = append(reports, [2]int64{processed, total})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalProcessed)
	assert.Equal(t, [][2]int64{{2, 3}, {3, 3}}, reports)
}

func TestScan_RequiresProcessor(t *testing.T) {
	scanner, _, _ := setupScanner(t)
	_, err := scanner.Scan(context.Background(), scan.ScanOptions{})
	assert.Error(t, err)
}

func TestScan_CancelledContext(t *testing.T) {
	scanner, _, _ := setupScanner(t)
	ctx, cancel := context.WithCancel(context.Background())

	result, err := scanner.Scan(ctx, scan.ScanOptions{
		BatchSize: 1,
		Processor: scan.ProcessorFunc(func(context.Context, *simplecatalog.Entry) error {
			cancel()
			return nil
		}),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), result.TotalProcessed)
}

func TestAssetVerifier(t *testing.T) {
	scanner, svc, blobs := setupScanner(t)
	keys := objectkey.NewAssetGenerator()
	require.NoError(t, blobs.Delete(context.Background(), keys.PackageKey("Transportation", "blue-bus")))

	verifier := scan.NewAssetVerifier(svc, nil)
	result, err := scanner.Scan(context.Background(), scan.ScanOptions{Processor: verifier})
	require.NoError(t, err)
	assert.Equal(t, []string{"blue-bus"}, result.FailedSlugs)

	entry, err := svc.GetEntry(context.Background(), "blue-bus")
	require.NoError(t, err)
	err = verifier.Process(context.Background(), entry)
	assert.ErrorIs(t, err, scan.ErrMissingAsset)
	assert.Contains(t, err.Error(), "assets/Transportation/blue-bus.zip")
}
