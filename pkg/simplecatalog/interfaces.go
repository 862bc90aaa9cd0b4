package simplecatalog

import (
	"context"
	"io"
)

// BlobStore defines the interface for asset storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download opens the object for reading. Missing objects yield ErrObjectNotFound.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for catalog metadata persistence.
//
// Implementations own both the per-slug records and the ordered index
// projection; each write method keeps the two consistent or fails.
type Repository interface {
	// CreateEntry stores a new entry at the head of the index with its
	// download counter at zero. Returns ErrDuplicateSlug when the slug is taken.
	CreateEntry(ctx context.Context, entry *Entry) error

	// GetEntry returns the entry or ErrNotFound
	GetEntry(ctx context.Context, slug string) (*Entry, error)

	// ListEntries returns every entry in index order, newest first
	ListEntries(ctx context.Context) ([]*Entry, error)

	// DeleteEntry removes the entry from the index, then its record.
	// Returns ErrNotFound when the slug is unknown.
	DeleteEntry(ctx context.Context, slug string) error

	// IncrementDownloads adds one to the entry's counter and returns the new value
	IncrementDownloads(ctx context.Context, slug string) (int64, error)
}

// EventSink defines the interface for catalog event handling
type EventSink interface {
	// EntryIngested is fired after an entry is committed
	EntryIngested(ctx context.Context, entry *Entry) error

	// EntryRetracted is fired after an entry and its blobs are removed
	EntryRetracted(ctx context.Context, entry *Entry) error

	// DownloadRecorded is fired after a download counter update
	DownloadRecorded(ctx context.Context, slug string, downloads int64) error

	// DownloadCounterFailed is fired when a counter update could not be applied
	DownloadCounterFailed(ctx context.Context, slug string, err error) error
}
