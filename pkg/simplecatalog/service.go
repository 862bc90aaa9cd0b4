package simplecatalog

import (
	"context"
	"io"
)

// Service defines the main interface for the simple-catalog library
type Service interface {
	// Catalog queries
	Query(ctx context.Context, req QueryRequest) (*Page, error)
	GetEntry(ctx context.Context, slug string) (*Entry, error)
	ListEntries(ctx context.Context) ([]*Entry, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
	Keywords(ctx context.Context, req KeywordsRequest) ([]KeywordCount, error)

	// Ingestion and retraction
	Ingest(ctx context.Context, req IngestRequest) (*Entry, error)
	Retract(ctx context.Context, slug string) error

	// Asset streaming
	OpenAsset(ctx context.Context, key string) (*Asset, error)
	Download(ctx context.Context, slug string) (*Asset, error)

	// Wait blocks until background download counter updates have finished
	Wait()

	// Close waits for pending work and releases the repository
	Close() error
}

// IngestRequest contains the three uploaded parts of a new catalog entry
type IngestRequest struct {
	MetadataName string // file name of the metadata document, e.g. "red-car.json"
	Metadata     io.Reader
	Image        io.Reader
	Package      io.Reader
}
