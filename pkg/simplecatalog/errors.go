package simplecatalog

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error types
var (
	// ErrMissingInput indicates a required ingestion input was absent
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidMetadata indicates the metadata document could not be parsed
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrDuplicateSlug indicates an entry with the same slug already exists
	ErrDuplicateSlug = errors.New("duplicate slug")

	// ErrNotFound indicates the entry or its blob does not exist
	ErrNotFound = errors.New("not found")

	// ErrObjectNotFound indicates a blob is missing from the asset store
	ErrObjectNotFound = fmt.Errorf("object %w", ErrNotFound)

	// ErrUnauthorized indicates the admin key was missing or wrong
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbiddenKey indicates an asset key outside the public asset prefix
	ErrForbiddenKey = errors.New("forbidden asset key")

	// ErrStoreUnavailable indicates a store could not be reached in time
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreFailure indicates a generic I/O failure from either store
	ErrStoreFailure = errors.New("store failure")
)

// EntryError represents an error related to a single catalog entry
type EntryError struct {
	Slug string
	Op   string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("catalog operation %s failed for %q: %v", e.Op, e.Slug, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// StoreError represents a failure reported by the metadata repository or the
// asset store. It matches ErrStoreUnavailable when the cause was a timeout or
// an unreachable peer and ErrStoreFailure otherwise.
type StoreError struct {
	Store string
	Op    string
	Key   string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation %s failed for key %s: %v", e.Store, e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreUnavailable:
		return unavailable(e.Err)
	case ErrStoreFailure:
		return !unavailable(e.Err)
	}
	return false
}

func unavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

// storeError wraps err for the given store unless it already carries one of
// the catalog sentinels that callers branch on.
func storeError(store, op, key string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrDuplicateSlug, ErrStoreUnavailable, ErrStoreFailure} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &StoreError{Store: store, Op: op, Key: key, Err: err}
}
