package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// DefaultBatchSize is the number of entries processed between progress reports
const DefaultBatchSize = 100

// Scanner walks catalog entries and processes them with the provided processor.
type Scanner struct {
	svc    simplecatalog.Service
	logger *slog.Logger
}

// New creates a new Scanner instance.
func New(svc simplecatalog.Service) *Scanner {
	return &Scanner{svc: svc, logger: slog.Default()}
}

// WithLogger returns a copy of the scanner reporting through logger
func (s *Scanner) WithLogger(logger *slog.Logger) *Scanner {
	return &Scanner{svc: s.svc, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Category restricts the scan to one category; empty or "all" scans everything
	Category string

	// Processor defines the processing logic (required unless DryRun is true)
	Processor EntryProcessor

	// BatchSize controls how often OnProgress fires (default: 100)
	BatchSize int

	// DryRun reports what would be processed without calling the processor
	DryRun bool

	// OnProgress is called after each batch is processed (optional)
	OnProgress func(processed, total int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64

	// FailedSlugs lists the entries the processor rejected, in index order
	FailedSlugs []string
}

// Scan processes every matching entry in index order, newest first.
// Processor failures are counted and do not stop the scan; a cancelled
// context does.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if opts.Processor == nil && !opts.DryRun {
		return nil, fmt.Errorf("processor is required (or use DryRun)")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	entries, err := s.svc.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	entries = simplecatalog.Filter(entries, opts.Category, "")

	result := &ScanResult{TotalFound: int64(len(entries))}

	for start := 0; start < len(entries); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+opts.BatchSize, len(entries))
		for _, entry := range entries[start:end] {
			if opts.DryRun {
				s.logger.Info("dry run: would process entry",
					"slug", entry.Slug, "category", entry.Category)
				result.TotalProcessed++
				continue
			}

			if err := opts.Processor.Process(ctx, entry); err != nil {
				result.TotalFailed++
				result.FailedSlugs = append(result.FailedSlugs, entry.Slug)
				s.logger.Warn("failed to process entry", "slug", entry.Slug, "err", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
	}

	return result, nil
}

// ForEach processes every entry of category with a callback function.
func (s *Scanner) ForEach(ctx context.Context, category string, fn func(context.Context, *simplecatalog.Entry) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Category:  category,
		Processor: ProcessorFunc(fn),
	})
}
