// Package simplecatalog provides a catalog and download service for stock
// vector assets with pluggable metadata repositories and blob stores.
//
// A catalog entry is identified by its slug and owns exactly two blobs in the
// asset store: a preview image at assets/<category>/<slug>.jpg and a package
// at assets/<category>/<slug>.zip. The Service orchestrates ingestion and
// retraction so the two stores stay in agreement, answers catalog queries
// (filter, search, sort, paginate) over the repository's ordered index and
// streams packages while counting downloads in the background.
//
// Repository Strategy
//
// Per-slug records are the source of truth. Every repository keeps an ordered
// index (newest first) as a projection that is written by the same call that
// writes the record, so callers never maintain both copies themselves.
// Implementations for memory, Redis, Badger and Postgres live under repo/.
// Blob stores for memory, filesystem and S3 live under storage/.
package simplecatalog
