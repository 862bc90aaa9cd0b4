package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/kvdoc"
)

// Repository implements simplecatalog.Repository on an embedded Badger database.
//
// The index is a single JSON document rewritten in the same transaction as
// the record it references. Writers are serialized in-process so
// transactions only conflict with other processes sharing the directory.
type Repository struct {
	db   *badger.DB
	keys kvdoc.Keys
	mu   sync.Mutex
}

// Config options for the Badger repository
type Config struct {
	Dir      string // data directory; ignored when InMemory is set
	InMemory bool
	Prefix   string
}

// Open opens (or creates) the database described by config
func Open(config Config) (*Repository, error) {
	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.Dir == "" {
			return nil, errors.New("badger directory is required")
		}
		opts = badger.DefaultOptions(config.Dir)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return New(db, config.Prefix), nil
}

// New wraps an already open database
func New(db *badger.DB, prefix string) *Repository {
	return &Repository{db: db, keys: kvdoc.NewKeys(prefix)}
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) CreateEntry(ctx context.Context, entry *simplecatalog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := kvdoc.EncodeEntry(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(r.keys.Entry(entry.Slug))); err == nil {
			return simplecatalog.ErrDuplicateSlug
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		index, err := r.readIndex(txn)
		if err != nil {
			return err
		}
		indexData, err := kvdoc.EncodeIndex(kvdoc.Prepend(index, entry.Slug))
		if err != nil {
			return err
		}

		if err := txn.Set([]byte(r.keys.Entry(entry.Slug)), data); err != nil {
			return err
		}
		if err := txn.Set([]byte(r.keys.Downloads(entry.Slug)), kvdoc.FormatCounter(0)); err != nil {
			return err
		}
		return txn.Set([]byte(r.keys.Index()), indexData)
	})
}

func (r *Repository) GetEntry(ctx context.Context, slug string) (*simplecatalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entry *simplecatalog.Entry
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = r.readEntry(txn, slug)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Repository) ListEntries(ctx context.Context) ([]*simplecatalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []*simplecatalog.Entry
	err := r.db.View(func(txn *badger.Txn) error {
		index, err := r.readIndex(txn)
		if err != nil {
			return err
		}
		entries = make([]*simplecatalog.Entry, 0, len(index))
		for _, slug := range index {
			entry, err := r.readEntry(txn, slug)
			if errors.Is(err, simplecatalog.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, slug string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(r.keys.Entry(slug))); errors.Is(err, badger.ErrKeyNotFound) {
			return simplecatalog.ErrNotFound
		} else if err != nil {
			return err
		}

		index, err := r.readIndex(txn)
		if err != nil {
			return err
		}
		indexData, err := kvdoc.EncodeIndex(kvdoc.Remove(index, slug))
		if err != nil {
			return err
		}

		if err := txn.Set([]byte(r.keys.Index()), indexData); err != nil {
			return err
		}
		if err := txn.Delete([]byte(r.keys.Entry(slug))); err != nil {
			return err
		}
		return txn.Delete([]byte(r.keys.Downloads(slug)))
	})
}

func (r *Repository) IncrementDownloads(ctx context.Context, slug string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var downloads int64
	err := r.update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(r.keys.Entry(slug))); errors.Is(err, badger.ErrKeyNotFound) {
			return simplecatalog.ErrNotFound
		} else if err != nil {
			return err
		}

		current, err := r.readCounter(txn, slug)
		if err != nil {
			return err
		}
		downloads = current + 1
		return txn.Set([]byte(r.keys.Downloads(slug)), kvdoc.FormatCounter(downloads))
	})
	if err != nil {
		return 0, err
	}
	return downloads, nil
}

// update runs fn in a read-write transaction. A conflict with another
// process is reported, not retried.
func (r *Repository) update(fn func(txn *badger.Txn) error) error {
	err := r.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: badger transaction conflict", simplecatalog.ErrStoreFailure)
	}
	return err
}

func (r *Repository) readIndex(txn *badger.Txn) ([]string, error) {
	item, err := txn.Get([]byte(r.keys.Index()))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return kvdoc.DecodeIndex(data)
}

func (r *Repository) readEntry(txn *badger.Txn, slug string) (*simplecatalog.Entry, error) {
	item, err := txn.Get([]byte(r.keys.Entry(slug)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, simplecatalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	downloads, err := r.readCounter(txn, slug)
	if err != nil {
		return nil, err
	}
	return kvdoc.DecodeEntry(data, downloads)
}

func (r *Repository) readCounter(txn *badger.Txn, slug string) (int64, error) {
	item, err := txn.Get([]byte(r.keys.Downloads(slug)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return kvdoc.ParseCounter(data)
}
