package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nao1215/clarityfilter/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.ScanReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.ScanReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "cards"})

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("adds multiple steps with AddSteps and keeps order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "cards"}, &mockStep{name: "items"}, &mockStep{name: "text"})

		names := p.StepNames()
		want := []string{"cards", "items", "text"}
		if len(names) != len(want) {
			t.Fatalf("expected %d names, got %v", len(want), names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("step %d: expected %s, got %s", i, want[i], names[i])
			}
		}
	})
}

// TestPipelineExecute tests step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes every step in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New()
		for _, name := range []string{"cards", "items", "text"} {
			p.AddStep(&mockStep{name: name, doFunc: func(_ context.Context, r *model.ScanReport) error {
				order = append(order, name)
				r.Pass(name).Candidates++
				return nil
			}})
		}

		report := model.NewScanReport("https://example.com/")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Join(order, ",") != "cards,items,text" {
			t.Errorf("unexpected order %v", order)
		}
		if len(report.PerformedPasses) != 3 {
			t.Errorf("expected 3 performed passes, got %v", report.PerformedPasses)
		}
		if len(report.Passes) != 3 {
			t.Errorf("expected 3 pass results, got %d", len(report.Passes))
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		second := &mockStep{name: "items"}
		p := New()
		p.AddSteps(
			&mockStep{name: "cards", doFunc: func(context.Context, *model.ScanReport) error { return boom }},
			second,
		)

		report := model.NewScanReport("https://example.com/")
		err := p.Execute(context.Background(), report)

		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
		if report.ErrorMessage != "boom" {
			t.Errorf("expected error recorded in report, got %q", report.ErrorMessage)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "items"}
		p := New(WithContinueOnError(true))
		p.AddSteps(
			&mockStep{name: "cards", doFunc: func(context.Context, *model.ScanReport) error { return errors.New("first") }},
			second,
		)

		report := model.NewScanReport("https://example.com/")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if second.callCount != 1 {
			t.Error("expected second step to run")
		}
		if report.Error == nil {
			t.Error("expected report to carry the error")
		}
	})

	t.Run("cancelled context marks report timed out", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "cards", doFunc: func(context.Context, *model.ScanReport) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "items"}
		p := New()
		p.AddSteps(first, second)

		report := model.NewScanReport("https://example.com/")
		err := p.Execute(ctx, report)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if !report.TimedOut {
			t.Error("expected report to be marked timed out")
		}
		if second.callCount != 0 {
			t.Error("expected no step after cancellation")
		}
		if len(report.PerformedPasses) != 1 {
			t.Errorf("expected the started pass to complete, got %v", report.PerformedPasses)
		}
	})
}

// TestStepFunc tests the function adapter.
func TestStepFunc(t *testing.T) {
	t.Parallel()

	called := false
	s := StepFunc{StepName: "text", Fn: func(context.Context, *model.ScanReport) error {
		called = true
		return nil
	}}

	if s.Name() != "text" {
		t.Errorf("expected name text, got %s", s.Name())
	}
	if err := s.Do(context.Background(), model.NewScanReport("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected function to be called")
	}
}

// TestPipelineWithLogger tests that the custom logger receives step events.
func TestPipelineWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := New(WithLogger(logger))
	p.AddStep(&mockStep{name: "cards"})

	if err := p.Execute(context.Background(), model.NewScanReport("https://example.com/")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "pass=cards") {
		t.Errorf("expected pass name in log output, got %q", buf.String())
	}
}
