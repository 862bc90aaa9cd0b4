package simplecatalog

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) EntryIngested(ctx context.Context, entry *Entry) error { return nil }

func (n *NoopEventSink) EntryRetracted(ctx context.Context, entry *Entry) error { return nil }

func (n *NoopEventSink) DownloadRecorded(ctx context.Context, slug string, downloads int64) error {
	return nil
}

func (n *NoopEventSink) DownloadCounterFailed(ctx context.Context, slug string, err error) error {
	return nil
}

// LoggingEventSink writes catalog events to a structured logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that logs through logger,
// or slog.Default() when logger is nil
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) EntryIngested(ctx context.Context, entry *Entry) error {
	l.logger.InfoContext(ctx, "entry ingested",
		"slug", entry.Slug,
		"category", entry.Category,
		"file_size", entry.FileSize)
	return nil
}

func (l *LoggingEventSink) EntryRetracted(ctx context.Context, entry *Entry) error {
	l.logger.InfoContext(ctx, "entry retracted", "slug", entry.Slug, "category", entry.Category)
	return nil
}

func (l *LoggingEventSink) DownloadRecorded(ctx context.Context, slug string, downloads int64) error {
	l.logger.DebugContext(ctx, "download recorded", "slug", slug, "downloads", downloads)
	return nil
}

func (l *LoggingEventSink) DownloadCounterFailed(ctx context.Context, slug string, err error) error {
	l.logger.WarnContext(ctx, "download counter failed", "slug", slug, "err", err)
	return nil
}
