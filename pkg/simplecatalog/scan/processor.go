package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// EntryProcessor handles one catalog entry during a scan
type EntryProcessor interface {
	Process(ctx context.Context, entry *simplecatalog.Entry) error
}

// ProcessorFunc adapts a function to the EntryProcessor interface.
type ProcessorFunc func(context.Context, *simplecatalog.Entry) error

func (f ProcessorFunc) Process(ctx context.Context, entry *simplecatalog.Entry) error {
	return f(ctx, entry)
}

// ErrMissingAsset is returned by AssetVerifier when an entry's image or
// package is absent from the asset store.
var ErrMissingAsset = errors.New("missing asset")

// AssetVerifier checks that both blobs of an entry can be opened. Entries
// left behind by a partially failed ingest or retraction fail verification.
type AssetVerifier struct {
	svc  simplecatalog.Service
	keys objectkey.Generator
}

func NewAssetVerifier(svc simplecatalog.Service, keys objectkey.Generator) *AssetVerifier {
	if keys == nil {
		keys = objectkey.NewAssetGenerator()
	}
	return &AssetVerifier{svc: svc, keys: keys}
}

func (v *AssetVerifier) Process(ctx context.Context, entry *simplecatalog.Entry) error {
	var missing []string
	for _, key := range []string{
		v.keys.ImageKey(entry.Category, entry.Slug),
		v.keys.PackageKey(entry.Category, entry.Slug),
	} {
		asset, err := v.svc.OpenAsset(ctx, key)
		if errors.Is(err, simplecatalog.ErrNotFound) {
			missing = append(missing, key)
			continue
		}
		if err != nil {
			return err
		}
		asset.Body.Close()
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingAsset, missing)
	}
	return nil
}
