package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Repository implements simplecatalog.Repository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	entries map[string]*simplecatalog.Entry
	index   []string // slugs, newest first
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		entries: make(map[string]*simplecatalog.Entry),
	}
}

// CreateEntry stores the entry with a fresh download counter
func (r *Repository) CreateEntry(ctx context.Context, entry *simplecatalog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.Slug]; exists {
		return simplecatalog.ErrDuplicateSlug
	}

	record := entry.Record()
	record.Downloads = 0
	r.entries[entry.Slug] = record
	r.index = append([]string{entry.Slug}, r.index...)
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, slug string) (*simplecatalog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[slug]
	if !exists {
		return nil, simplecatalog.ErrNotFound
	}
	return entry.Clone(), nil
}

func (r *Repository) ListEntries(ctx context.Context) ([]*simplecatalog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplecatalog.Entry, 0, len(r.index))
	for _, slug := range r.index {
		result = append(result, r.entries[slug].Clone())
	}
	return result, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[slug]; !exists {
		return simplecatalog.ErrNotFound
	}

	for i, s := range r.index {
		if s == slug {
			r.index = append(r.index[:i:i], r.index[i+1:]...)
			break
		}
	}
	delete(r.entries, slug)
	return nil
}

func (r *Repository) IncrementDownloads(ctx context.Context, slug string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[slug]
	if !exists {
		return 0, simplecatalog.ErrNotFound
	}
	entry.Downloads++
	return entry.Downloads, nil
}
