package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/clarityfilter/internal/model"
)

// FilterFunc loads, scans and writes one document identified by source
// (a file path or URL) and returns its report.
type FilterFunc func(ctx context.Context, source string) (*model.ScanReport, error)

// BatchProcessor handles concurrent filtering of multiple documents.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// filter processes one document. It must not share a document or an
	// engine between calls.
	filter FilterFunc

	// concurrency is the maximum number of documents processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed reports in input order.
	// Access is synchronized via mutex.
	results []*model.ScanReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent documents.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(filter FilterFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		filter:      filter,
		concurrency: 4,
		results:     make([]*model.ScanReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch filters multiple documents concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// A failing document does not stop the others: its error is recorded in
// its report. The returned error is only the context error of a cancelled
// batch.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []string) ([]*model.ScanReport, error) {
	bp.logger.Info("starting batch processing",
		"total_documents", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.ScanReport, len(sources))

	err := bp.run(ctx, sources, func(report *model.ScanReport, i int) {
		bp.mu.Lock()
		bp.results[i] = report
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_documents", len(sources),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback filters multiple documents and calls callback
// for each completed one. The callback runs on the goroutine that finished
// the document, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(report *model.ScanReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_documents", len(sources),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, sources, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, sources []string, done func(*model.ScanReport, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("filtering document",
				"source", source,
				"index", i+1,
				"total", len(sources),
			)

			report, err := bp.filter(ctx, source)
			if report == nil {
				report = model.NewScanReport(source)
			}
			if err != nil {
				report.SetError(err)
				bp.logger.Warn("document failed",
					"source", source,
					"error", err,
				)
			}
			done(report, i)
			return nil
		})
	}

	return g.Wait()
}
