package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/clarityfilter/internal/model"
)

// Step is one pass over a document. Passes run in order and share the
// report they fill in.
type Step interface {
	// Do runs the pass. A returned error is recorded in the report; content
	// problems are counted in the report instead.
	Do(ctx context.Context, report *model.ScanReport) error

	// Name identifies the pass in logs and in PerformedPasses.
	Name() string
}

// StepFunc is a Step built from a function.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, report *model.ScanReport) error
}

// Do implements Step.
func (s StepFunc) Do(ctx context.Context, report *model.ScanReport) error {
	return s.Fn(ctx, report)
}

// Name implements Step.
func (s StepFunc) Name() string {
	return s.StepName
}

// Pipeline runs a fixed sequence of passes for one scan.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later passes after one fails. Only the
// first error is kept in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the passes in order.
//
// The context is checked between passes, never inside one, so a pass that
// has started always finishes. When the context is done the report is marked
// TimedOut and ctx.Err is returned; the passes already run stay applied.
func (p *Pipeline) Execute(ctx context.Context, report *model.ScanReport) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("scan interrupted",
				"url", report.URL,
				"next_pass", step.Name(),
				"remaining", len(p.steps)-i,
				"reason", err,
			)
			report.TimedOut = true
			return err
		}

		start := time.Now()
		err := step.Do(ctx, report)
		report.PerformedPasses = append(report.PerformedPasses, step.Name())
		if err == nil {
			p.logger.Debug("pass done",
				"pass", step.Name(),
				"url", report.URL,
				"elapsed", time.Since(start),
			)
			continue
		}

		p.logger.Error("pass failed", "pass", step.Name(), "url", report.URL, "error", err)
		report.SetError(err)
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// StepCount returns the number of passes.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the pass names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
