package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/pipeline"
	"github.com/nao1215/clarityfilter/internal/redact"
	"github.com/nao1215/clarityfilter/internal/scope"
	"github.com/nao1215/clarityfilter/internal/selector"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// Limits on the work done by one scan.
const (
	// MaxCandidates is the number of elements one pass enumerates.
	MaxCandidates = 5000
	// MaxTextNodes is the number of text nodes searched per candidate.
	MaxTextNodes = 3000
)

// snapshot is the state a scan reads. It is never modified after it is
// stored.
type snapshot struct {
	settings   settings.Settings
	matcher    *matcher.Matcher
	matcherErr error
	whitelist  *scope.Filter
}

// skip returns why a scan of pageURL should not run.
func (s *snapshot) skip(pageURL string) model.SkipReason {
	switch {
	case !s.settings.Enabled:
		return model.SkipDisabled
	case s.whitelist.Whitelisted(pageURL):
		return model.SkipWhitelisted
	case s.matcher == nil:
		return model.SkipNoMatcher
	}
	return model.SkipNone
}

func (s *snapshot) effect() redact.Effect {
	return redact.Effect{
		Mode:     s.settings.Mode,
		Matcher:  s.matcher,
		CellSize: s.settings.PixelCellSize,
	}
}

// Engine filters one document.
type Engine struct {
	doc      *dom.Document
	selector *selector.Selector
	actuator *redact.Actuator
	snap     atomic.Pointer[snapshot]
	logger   *slog.Logger

	regexpEngine  matcher.Engine
	matchTimeout  time.Duration
	maxCandidates int
	maxTextNodes  int
	selectorOpts  []selector.Option
	placeholder   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRegexpEngine selects the regular expression engine terms compile to.
func WithRegexpEngine(re matcher.Engine) Option {
	return func(e *Engine) {
		e.regexpEngine = re
	}
}

// WithMatchTimeout bounds a single backtracking match.
func WithMatchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.matchTimeout = d
	}
}

// WithMaxCandidates overrides the number of candidates per pass.
func WithMaxCandidates(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCandidates = n
		}
	}
}

// WithMaxTextNodes overrides the number of text nodes searched per
// candidate.
func WithMaxTextNodes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTextNodes = n
		}
	}
}

// WithSelectorOptions passes options to the container selector.
func WithSelectorOptions(opts ...selector.Option) Option {
	return func(e *Engine) {
		e.selectorOpts = append(e.selectorOpts, opts...)
	}
}

// WithPlaceholder sets the replace mode placeholder.
func WithPlaceholder(p string) Option {
	return func(e *Engine) {
		e.placeholder = p
	}
}

// New creates an engine for doc with the initial settings s.
func New(doc *dom.Document, s settings.Settings, opts ...Option) *Engine {
	e := &Engine{
		doc:           doc,
		regexpEngine:  matcher.EngineBacktracking,
		matchTimeout:  matcher.DefaultMatchTimeout,
		maxCandidates: MaxCandidates,
		maxTextNodes:  MaxTextNodes,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.selector = selector.New(doc.Geometry(), e.selectorOpts...)
	e.actuator = redact.New(doc, redact.WithPlaceholder(e.placeholder))
	e.snap.Store(e.build(s))
	return e
}

// build normalizes s and compiles its terms. A compile failure leaves the
// snapshot without a matcher.
func (e *Engine) build(s settings.Settings) *snapshot {
	s = settings.Normalize(s)
	m, err := matcher.Compile(s.Terms,
		matcher.WithEngine(e.regexpEngine),
		matcher.WithMatchTimeout(e.matchTimeout),
	)
	if err != nil && !errors.Is(err, matcher.ErrNoTerms) {
		e.logger.Warn("terms did not compile, filtering is inactive", "error", err)
	}
	return &snapshot{
		settings:   s,
		matcher:    m,
		matcherErr: err,
		whitelist:  scope.NewFilter(s.Whitelist),
	}
}

// Document returns the filtered document.
func (e *Engine) Document() *dom.Document {
	return e.doc
}

// Settings returns the settings in effect. It is safe to call from any
// goroutine.
func (e *Engine) Settings() settings.Settings {
	return e.snap.Load().settings.Clone()
}

// Matcher returns the compiled matcher, nil when terms are absent or did
// not compile. It is safe to call from any goroutine.
func (e *Engine) Matcher() *matcher.Matcher {
	return e.snap.Load().matcher
}

// MatcherErr returns the error of the last compilation, if any.
func (e *Engine) MatcherErr() error {
	return e.snap.Load().matcherErr
}

// UpdateSettings replaces the snapshot with one built from s and removes
// every existing mark so the next scan applies the new state. It reports
// whether anything changed.
func (e *Engine) UpdateSettings(s settings.Settings) bool {
	next := e.build(s)
	if next.settings.Equal(e.snap.Load().settings) {
		return false
	}
	e.snap.Store(next)
	cleared := e.actuator.Clear()
	e.logger.Debug("settings updated",
		"mode", next.settings.Mode,
		"enabled", next.settings.Enabled,
		"terms", len(next.settings.Terms),
		"cleared", cleared,
	)
	return true
}

// Scan runs the candidate passes once. It never fails: problems are
// recorded in the report. The report's Newly counts containers marked by
// this call only.
func (e *Engine) Scan(ctx context.Context) *model.ScanReport {
	start := time.Now()
	snap := e.snap.Load()

	report := model.NewScanReport(e.doc.URL())
	report.Host, _ = scope.Host(report.URL)
	report.Mode = snap.settings.Mode

	if reason := snap.skip(report.URL); reason != model.SkipNone {
		report.Skipped = reason
		report.Cleared = e.actuator.Clear()
		report.Duration = time.Since(start)
		e.logger.Debug("scan skipped",
			"url", report.URL,
			"reason", reason,
			"cleared", report.Cleared,
		)
		return report
	}

	p := pipeline.New(
		pipeline.WithLogger(e.logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(e.passes(snap)...)
	if err := p.Execute(ctx, report); err != nil {
		e.logger.Debug("scan interrupted", "url", report.URL, "error", err)
	}

	report.Active = e.actuator.Active()
	report.Duration = time.Since(start)
	e.logger.Debug("scan complete",
		"url", report.URL,
		"mode", report.Mode,
		"newly", report.Newly,
		"active", report.Active,
		"duration", report.Duration,
	)
	return report
}

// Rescan scans and returns the number of containers under redaction.
func (e *Engine) Rescan(ctx context.Context) int {
	return e.Scan(ctx).Active
}

// Clear removes every redaction and returns the number of containers that
// were marked.
func (e *Engine) Clear() int {
	return e.actuator.Clear()
}

// Active returns the number of containers under redaction.
func (e *Engine) Active() int {
	return e.actuator.Active()
}
