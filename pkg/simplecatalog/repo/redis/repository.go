package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/kvdoc"
)

// Repository implements simplecatalog.Repository on Redis.
//
// Records are JSON strings, counters are integers driven by INCR and the
// index is a list with the newest slug at the head. Every write runs in a
// MULTI/EXEC transaction guarded by WATCH on the entry key.
type Repository struct {
	client redis.UniversalClient
	keys   kvdoc.Keys
}

// Option configures the repository
type Option func(*Repository)

// WithPrefix namespaces all keys written by the repository
func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.keys = kvdoc.NewKeys(prefix)
	}
}

// New creates a repository on an existing client
func New(client redis.UniversalClient, opts ...Option) *Repository {
	r := &Repository{
		client: client,
		keys:   kvdoc.NewKeys(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromURL dials the redis:// or rediss:// URL and verifies the connection
func NewFromURL(ctx context.Context, url string, opts ...Option) (*Repository, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", simplecatalog.ErrStoreUnavailable, err)
	}
	return New(client, opts...), nil
}

// Close releases the client
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) CreateEntry(ctx context.Context, entry *simplecatalog.Entry) error {
	data, err := kvdoc.EncodeEntry(entry)
	if err != nil {
		return err
	}

	entryKey := r.keys.Entry(entry.Slug)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, entryKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return simplecatalog.ErrDuplicateSlug
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey, data, 0)
			pipe.Set(ctx, r.keys.Downloads(entry.Slug), 0, 0)
			pipe.LPush(ctx, r.keys.Index(), entry.Slug)
			return nil
		})
		return err
	}, entryKey)

	if errors.Is(err, redis.TxFailedErr) {
		// The watched key changed underneath us; most likely a concurrent create.
		if n, existsErr := r.client.Exists(ctx, entryKey).Result(); existsErr == nil && n > 0 {
			return simplecatalog.ErrDuplicateSlug
		}
		return fmt.Errorf("create %s: %w", entry.Slug, err)
	}
	return err
}

func (r *Repository) GetEntry(ctx context.Context, slug string) (*simplecatalog.Entry, error) {
	values, err := r.client.MGet(ctx, r.keys.Entry(slug), r.keys.Downloads(slug)).Result()
	if err != nil {
		return nil, err
	}
	entries, err := r.decode(values[:1], values[1:])
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, simplecatalog.ErrNotFound
	}
	return entries[0], nil
}

func (r *Repository) ListEntries(ctx context.Context) ([]*simplecatalog.Entry, error) {
	slugs, err := r.client.LRange(ctx, r.keys.Index(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(slugs) == 0 {
		return []*simplecatalog.Entry{}, nil
	}

	entryKeys := make([]string, len(slugs))
	counterKeys := make([]string, len(slugs))
	for i, slug := range slugs {
		entryKeys[i] = r.keys.Entry(slug)
		counterKeys[i] = r.keys.Downloads(slug)
	}

	var records, counters *redis.SliceCmd
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		records = pipe.MGet(ctx, entryKeys...)
		counters = pipe.MGet(ctx, counterKeys...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.decode(records.Val(), counters.Val())
}

// decode pairs records with counters, skipping slugs whose record vanished
// between reading the index and the records.
func (r *Repository) decode(records, counters []interface{}) ([]*simplecatalog.Entry, error) {
	entries := make([]*simplecatalog.Entry, 0, len(records))
	for i, raw := range records {
		data, ok := raw.(string)
		if !ok {
			continue
		}
		var downloads int64
		if c, ok := counters[i].(string); ok {
			n, err := kvdoc.ParseCounter([]byte(c))
			if err != nil {
				return nil, err
			}
			downloads = n
		}
		entry, err := kvdoc.DecodeEntry([]byte(data), downloads)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, slug string) error {
	entryKey := r.keys.Entry(slug)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, entryKey).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return simplecatalog.ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, r.keys.Index(), 0, slug)
			pipe.Del(ctx, entryKey, r.keys.Downloads(slug))
			return nil
		})
		return err
	}, entryKey)
}

func (r *Repository) IncrementDownloads(ctx context.Context, slug string) (int64, error) {
	entryKey := r.keys.Entry(slug)
	var incr *redis.IntCmd
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, entryKey).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return simplecatalog.ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, r.keys.Downloads(slug))
			return nil
		})
		return err
	}, entryKey)
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
