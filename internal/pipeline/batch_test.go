package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/clarityfilter/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	filter := func(context.Context, string) (*model.ScanReport, error) { return nil, nil }

	t.Run("uses default concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(filter)
		if bp.concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", bp.concurrency)
		}
	})

	t.Run("applies WithConcurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(filter, WithConcurrency(9))
		if bp.concurrency != 9 {
			t.Errorf("expected concurrency 9, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(filter, WithConcurrency(0))
		if bp.concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests concurrent filtering.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns reports in input order", func(t *testing.T) {
		t.Parallel()

		filter := func(_ context.Context, source string) (*model.ScanReport, error) {
			r := model.NewScanReport(source)
			r.Newly = len(source)
			return r, nil
		}
		bp := NewBatchProcessor(filter, WithBatchLogger(discardLogger()))

		sources := []string{"a.html", "bb.html", "ccc.html"}
		reports, err := bp.ProcessBatch(context.Background(), sources)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(sources) {
			t.Fatalf("expected %d reports, got %d", len(sources), len(reports))
		}
		for i, r := range reports {
			if r.URL != sources[i] {
				t.Errorf("report %d: expected %s, got %s", i, sources[i], r.URL)
			}
		}
	})

	t.Run("records failures without stopping the batch", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("unreadable")
		filter := func(_ context.Context, source string) (*model.ScanReport, error) {
			if source == "bad.html" {
				return nil, boom
			}
			return model.NewScanReport(source), nil
		}
		bp := NewBatchProcessor(filter, WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"ok.html", "bad.html", "ok2.html"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[1].Error == nil || reports[1].URL != "bad.html" {
			t.Errorf("expected failed report for bad.html, got %+v", reports[1])
		}
		if reports[0].Error != nil || reports[2].Error != nil {
			t.Error("expected other documents to succeed")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		filter := func(_ context.Context, source string) (*model.ScanReport, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return model.NewScanReport(source), nil
		}
		bp := NewBatchProcessor(filter, WithConcurrency(2), WithBatchLogger(discardLogger()))

		sources := make([]string, 8)
		for i := range sources {
			sources[i] = "doc.html"
		}
		if _, err := bp.ProcessBatch(context.Background(), sources); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent documents, got %d", peak.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		filter := func(_ context.Context, source string) (*model.ScanReport, error) {
			return model.NewScanReport(source), nil
		}
		bp := NewBatchProcessor(filter, WithBatchLogger(discardLogger()))

		if _, err := bp.ProcessBatch(ctx, []string{"a", "b"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests callback delivery.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	filter := func(_ context.Context, source string) (*model.ScanReport, error) {
		return model.NewScanReport(source), nil
	}
	bp := NewBatchProcessor(filter, WithBatchLogger(discardLogger()))

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), []string{"a", "b", "c"}, func(r *model.ScanReport, i int) {
		mu.Lock()
		defer mu.Unlock()
		seen[i] = r.URL
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 3 || seen[0] != "a" || seen[2] != "c" {
		t.Errorf("unexpected callbacks %v", seen)
	}
}
