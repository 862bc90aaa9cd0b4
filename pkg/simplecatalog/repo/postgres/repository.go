package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

//go:embed schema.sql
var schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplecatalog.Repository using PostgreSQL.
//
// Entries are rows keyed by slug; the index order is the insertion sequence.
// The primary key rejects duplicates and downloads are incremented in place.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// Connect opens a pool for databaseURL. When schema is set it becomes the
// connection search_path.
func Connect(ctx context.Context, databaseURL, schema string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres ping: %v", simplecatalog.ErrStoreUnavailable, err)
	}
	return NewWithPool(pool), nil
}

// Close closes the pool when the repository owns one
func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Migrate creates the catalog table and indexes if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return simplecatalog.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return simplecatalog.ErrDuplicateSlug
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const entryColumns = `slug, category, title, description, keywords,
	to_char(entry_date, 'YYYY-MM-DD'), downloads, file_size`

func scanEntry(row pgx.Row) (*simplecatalog.Entry, error) {
	var e simplecatalog.Entry
	err := row.Scan(&e.Slug, &e.Category, &e.Title, &e.Description, &e.Keywords,
		&e.Date, &e.Downloads, &e.FileSize)
	if err != nil {
		return nil, err
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	return &e, nil
}

func (r *Repository) CreateEntry(ctx context.Context, entry *simplecatalog.Entry) error {
	query := `
		INSERT INTO catalog_entry (
			slug, category, title, description, keywords, entry_date, file_size
		) VALUES ($1, $2, $3, $4, $5, $6::date, $7)`

	keywords := entry.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	_, err := r.db.Exec(ctx, query,
		entry.Slug, entry.Category, entry.Title, entry.Description,
		keywords, entry.Date, entry.FileSize)
	if err != nil {
		return r.handlePostgresError("create entry", err)
	}
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, slug string) (*simplecatalog.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entry WHERE slug = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, r.handlePostgresError("get entry", err)
	}
	return entry, nil
}

func (r *Repository) ListEntries(ctx context.Context) ([]*simplecatalog.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entry ORDER BY seq DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list entries", err)
	}
	defer rows.Close()

	entries := []*simplecatalog.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.handlePostgresError("list entries", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list entries", err)
	}
	return entries, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, slug string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM catalog_entry WHERE slug = $1`, slug)
	if err != nil {
		return r.handlePostgresError("delete entry", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

func (r *Repository) IncrementDownloads(ctx context.Context, slug string) (int64, error) {
	query := `UPDATE catalog_entry SET downloads = downloads + 1 WHERE slug = $1 RETURNING downloads`

	var downloads int64
	if err := r.db.QueryRow(ctx, query, slug).Scan(&downloads); err != nil {
		return 0, r.handlePostgresError("increment downloads", err)
	}
	return downloads, nil
}
