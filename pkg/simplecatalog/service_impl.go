package simplecatalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/urlstrategy"
)

// DefaultCounterTimeout bounds a background download counter update
const DefaultCounterTimeout = 10 * time.Second

// service implements the Service interface
type service struct {
	repository     Repository
	blobStore      BlobStore
	eventSinks     []EventSink
	keys           objectkey.Generator
	urls           urlstrategy.URLStrategy
	categories     []string
	counterTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger

	pending sync.WaitGroup
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the asset store for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink adds an event sink. Multiple sinks are called in order.
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		if sink != nil {
			s.eventSinks = append(s.eventSinks, sink)
		}
	}
}

// WithObjectKeyGenerator overrides the asset key layout
func WithObjectKeyGenerator(g objectkey.Generator) Option {
	return func(s *service) {
		s.keys = g
	}
}

// WithURLStrategy sets how thumbnail and package references are built
func WithURLStrategy(strategy urlstrategy.URLStrategy) Option {
	return func(s *service) {
		s.urls = strategy
	}
}

// WithCategories sets the known category list reported even when empty
func WithCategories(categories []string) Option {
	return func(s *service) {
		s.categories = append([]string(nil), categories...)
	}
}

// WithCounterTimeout bounds each background download counter update
func WithCounterTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.counterTimeout = d
		}
	}
}

// WithClock overrides the clock used to date new entries
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the logger used for background failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keys:           objectkey.NewAssetGenerator(),
		urls:           urlstrategy.NewProxyStrategy(""),
		categories:     DefaultCategories,
		counterTimeout: DefaultCounterTimeout,
		now:            time.Now,
		logger:         slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	return s, nil
}

// Catalog queries

func (s *service) Query(ctx context.Context, req QueryRequest) (*Page, error) {
	entries, err := s.repository.ListEntries(ctx)
	if err != nil {
		return nil, storeError("repository", "list", "index", err)
	}

	page := Query(entries, req)
	for _, e := range page.Items {
		s.enrich(e)
	}
	return page, nil
}

func (s *service) GetEntry(ctx context.Context, slug string) (*Entry, error) {
	entry, err := s.repository.GetEntry(ctx, slug)
	if err != nil {
		return nil, &EntryError{Slug: slug, Op: "get", Err: storeError("repository", "get", slug, err)}
	}
	return s.enrich(entry), nil
}

func (s *service) ListEntries(ctx context.Context) ([]*Entry, error) {
	entries, err := s.repository.ListEntries(ctx)
	if err != nil {
		return nil, storeError("repository", "list", "index", err)
	}
	for _, e := range entries {
		s.enrich(e)
	}
	return entries, nil
}

func (s *service) Categories(ctx context.Context) ([]CategoryCount, error) {
	entries, err := s.repository.ListEntries(ctx)
	if err != nil {
		return nil, storeError("repository", "list", "index", err)
	}
	return CountCategories(entries, s.categories), nil
}

func (s *service) Keywords(ctx context.Context, req KeywordsRequest) ([]KeywordCount, error) {
	entries, err := s.repository.ListEntries(ctx)
	if err != nil {
		return nil, storeError("repository", "list", "index", err)
	}
	return TopKeywords(entries, req), nil
}

// enrich attaches the derived references, using the same key layout ingestion writes to
func (s *service) enrich(e *Entry) *Entry {
	e.Thumbnail = s.urls.AssetURL(s.keys.ImageKey(e.Category, e.Slug))
	e.ZipURL = s.urls.AssetURL(s.keys.PackageKey(e.Category, e.Slug))
	return e
}

// Ingestion and retraction

func (s *service) Ingest(ctx context.Context, req IngestRequest) (*Entry, error) {
	if req.MetadataName == "" || req.Metadata == nil || req.Image == nil || req.Package == nil {
		return nil, fmt.Errorf("%w: metadata, image and package are all required", ErrMissingInput)
	}

	slug, md, err := ParseMetadata(req.MetadataName, req.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.repository.GetEntry(ctx, slug)
	switch {
	case err == nil:
		return nil, &EntryError{Slug: slug, Op: "ingest", Err: ErrDuplicateSlug}
	case !errors.Is(err, ErrNotFound):
		return nil, &EntryError{Slug: slug, Op: "ingest", Err: storeError("repository", "get", slug, err)}
	}

	entry := NewEntry(slug, md, s.now().UTC().Format(DateLayout), "")
	imageKey := s.keys.ImageKey(entry.Category, slug)
	packageKey := s.keys.PackageKey(entry.Category, slug)

	// Blobs go first so a failed commit leaves only unreferenced objects.
	pkg := &countingReader{r: req.Package}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		params := UploadParams{ObjectKey: imageKey, MimeType: "image/jpeg"}
		return storeError("blob", "upload", imageKey, s.blobStore.UploadWithParams(gctx, req.Image, params))
	})
	g.Go(func() error {
		params := UploadParams{ObjectKey: packageKey, MimeType: "application/zip"}
		return storeError("blob", "upload", packageKey, s.blobStore.UploadWithParams(gctx, pkg, params))
	})
	if err := g.Wait(); err != nil {
		return nil, &EntryError{Slug: slug, Op: "ingest", Err: err}
	}

	entry.FileSize = FormatFileSize(pkg.n)

	if err := s.repository.CreateEntry(ctx, entry.Record()); err != nil {
		return nil, &EntryError{Slug: slug, Op: "ingest", Err: storeError("repository", "create", slug, err)}
	}

	s.emit(ctx, "entry_ingested", func(sink EventSink) error {
		return sink.EntryIngested(ctx, entry)
	})

	return s.enrich(entry), nil
}

func (s *service) Retract(ctx context.Context, slug string) error {
	entry, err := s.repository.GetEntry(ctx, slug)
	if err != nil {
		return &EntryError{Slug: slug, Op: "retract", Err: storeError("repository", "get", slug, err)}
	}

	// Blobs before metadata: a partial failure leaves a record a retry can still find.
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range []string{
		s.keys.ImageKey(entry.Category, slug),
		s.keys.PackageKey(entry.Category, slug),
	} {
		g.Go(func() error {
			err := s.blobStore.Delete(gctx, key)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return storeError("blob", "delete", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &EntryError{Slug: slug, Op: "retract", Err: err}
	}

	if err := s.repository.DeleteEntry(ctx, slug); err != nil {
		return &EntryError{Slug: slug, Op: "retract", Err: storeError("repository", "delete", slug, err)}
	}

	s.emit(ctx, "entry_retracted", func(sink EventSink) error {
		return sink.EntryRetracted(ctx, entry)
	})
	return nil
}

// Asset streaming

func (s *service) OpenAsset(ctx context.Context, key string) (*Asset, error) {
	if !objectkey.IsAssetKey(key) {
		return nil, fmt.Errorf("%w: %s", ErrForbiddenKey, key)
	}
	return s.open(ctx, key)
}

func (s *service) Download(ctx context.Context, slug string) (*Asset, error) {
	entry, err := s.repository.GetEntry(ctx, slug)
	if err != nil {
		return nil, &EntryError{Slug: slug, Op: "download", Err: storeError("repository", "get", slug, err)}
	}

	asset, err := s.open(ctx, s.keys.PackageKey(entry.Category, slug))
	if err != nil {
		return nil, &EntryError{Slug: slug, Op: "download", Err: err}
	}
	asset.ContentType = "application/zip"
	asset.Entry = s.enrich(entry)

	s.recordDownload(ctx, slug)
	return asset, nil
}

func (s *service) open(ctx context.Context, key string) (*Asset, error) {
	body, err := s.blobStore.Download(ctx, key)
	if err != nil {
		return nil, storeError("blob", "download", key, err)
	}

	asset := &Asset{Key: key, Body: body, Size: -1}
	var stored string
	if meta, err := s.blobStore.GetObjectMeta(ctx, key); err == nil {
		asset.Size = meta.Size
		stored = meta.ContentType
	}
	asset.ContentType = ContentTypeForKey(key, stored)
	return asset, nil
}

// recordDownload increments the counter in the background on a context that
// survives the request; failures are logged and reported to the event sinks.
func (s *service) recordDownload(ctx context.Context, slug string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.counterTimeout)
		defer cancel()

		downloads, err := s.repository.IncrementDownloads(cctx, slug)
		if err != nil {
			s.logger.Error("download counter update failed", "slug", slug, "err", err)
			s.emit(cctx, "download_counter_failed", func(sink EventSink) error {
				return sink.DownloadCounterFailed(cctx, slug, err)
			})
			return
		}
		s.emit(cctx, "download_recorded", func(sink EventSink) error {
			return sink.DownloadRecorded(cctx, slug, downloads)
		})
	}()
}

func (s *service) emit(ctx context.Context, event string, fire func(EventSink) error) {
	for _, sink := range s.eventSinks {
		if err := fire(sink); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", event, "err", err)
		}
	}
}

func (s *service) Wait() {
	s.pending.Wait()
}

func (s *service) Close() error {
	s.pending.Wait()
	if closer, ok := s.repository.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ContentTypeForKey picks the content type served for an asset key by its
// extension, falling back to the stored type.
func ContentTypeForKey(key, stored string) string {
	switch objectkey.Ext(path.Base(key)) {
	case ".zip":
		return "application/zip"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	if stored != "" {
		return stored
	}
	return "application/octet-stream"
}

// FormatFileSize renders a package size for display, e.g. "2.4 MB"
func FormatFileSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
