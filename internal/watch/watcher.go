package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/engine"
	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// DefaultDebounce is the quiet period before a mutation-triggered scan.
const DefaultDebounce = 200 * time.Millisecond

// Watcher re-scans a document when it or the settings change.
type Watcher struct {
	engine   *engine.Engine
	store    settings.Store
	debounce time.Duration
	logger   *slog.Logger
	onScan   func(*model.ScanReport)

	events     chan event
	settingsCh chan settings.Settings
	done       chan struct{}
	running    atomic.Bool

	// Loop state.
	timer  *time.Timer
	timerC <-chan time.Time
	scans  int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a mutation-triggered scan.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithStore subscribes the watcher to settings changes of store.
func WithStore(store settings.Store) Option {
	return func(w *Watcher) {
		w.store = store
	}
}

// WithOnScan sets a hook called on the loop after every scan.
func WithOnScan(fn func(*model.ScanReport)) Option {
	return func(w *Watcher) {
		w.onScan = fn
	}
}

// New creates a watcher for the document of e.
func New(e *engine.Engine, opts ...Option) *Watcher {
	w := &Watcher{
		engine:     e,
		debounce:   DefaultDebounce,
		events:     make(chan event, 16),
		settingsCh: make(chan settings.Settings, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Run scans once and then handles events until ctx ends. It returns the
// context error.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(w.done)

	doc := w.engine.Document()
	// Observer callbacks run synchronously inside document writes, and all
	// writes happen on this goroutine.
	stopObserving := doc.Observe(func(rec dom.MutationRecord) {
		w.handle(ctx, mutationEvent{record: rec})
	})
	defer stopObserving()

	if w.store != nil {
		unsubscribe := w.store.OnChange(w.notifySettings)
		defer unsubscribe()
	}

	w.logger.Info("watching document",
		"url", doc.URL(),
		"debounce", w.debounce,
	)
	w.scan(ctx, TriggerInitial)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			w.logger.Info("watcher stopped", "scans", w.scans)
			return ctx.Err()
		case ev := <-w.events:
			w.handle(ctx, ev)
		case s := <-w.settingsCh:
			w.applySettings(ctx, s)
		case <-w.timerC:
			w.timerC = nil
			w.scan(ctx, TriggerMutation)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case mutationEvent:
		if schedules(ev.record) {
			w.schedule()
		}
	case rescanEvent:
		w.stopTimer()
		ev.reply <- w.scan(ctx, TriggerRescan).Active
	case clearEvent:
		w.stopTimer()
		ev.reply <- w.engine.Clear()
	case mutateEvent:
		ev.reply <- ev.fn(w.engine.Document())
	case navigateEvent:
		if err := w.engine.Document().SetURL(ev.url); err != nil {
			ev.reply <- err
			return
		}
		w.stopTimer()
		w.scan(ctx, TriggerNavigate)
		ev.reply <- nil
	}
}

// schedule (re)starts the debounce window.
func (w *Watcher) schedule() {
	if w.timer == nil {
		w.timer = time.NewTimer(w.debounce)
	} else {
		w.timer.Reset(w.debounce)
	}
	w.timerC = w.timer.C
}

func (w *Watcher) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerC = nil
}

func (w *Watcher) applySettings(ctx context.Context, s settings.Settings) {
	if !w.engine.UpdateSettings(s) {
		return
	}
	w.stopTimer()
	w.scan(ctx, TriggerSettings)
}

func (w *Watcher) scan(ctx context.Context, trigger string) *model.ScanReport {
	report := w.engine.Scan(ctx)
	report.Trigger = trigger
	w.scans++
	w.logger.Debug("scan",
		"trigger", trigger,
		"newly", report.Newly,
		"active", report.Active,
		"skipped", report.Skipped,
	)
	if w.onScan != nil {
		w.onScan(report)
	}
	return report
}

// notifySettings keeps only the latest pending settings. It may be called
// from any goroutine.
func (w *Watcher) notifySettings(s settings.Settings) {
	for {
		select {
		case w.settingsCh <- s:
			return
		default:
		}
		select {
		case <-w.settingsCh:
		default:
		}
	}
}

// post delivers ev to the loop. Events posted before Run starts wait in
// the queue.
func (w *Watcher) post(ctx context.Context, ev event) error {
	select {
	case w.events <- ev:
		return nil
	case <-w.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func wait[T any](ctx context.Context, w *Watcher, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-w.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Rescan scans immediately and returns the number of containers under
// redaction.
func (w *Watcher) Rescan(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := w.post(ctx, rescanEvent{reply: reply}); err != nil {
		return 0, err
	}
	return wait(ctx, w, reply)
}

// Clear removes every redaction and returns the number of containers that
// were marked. A later mutation or settings change scans again.
func (w *Watcher) Clear(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := w.post(ctx, clearEvent{reply: reply}); err != nil {
		return 0, err
	}
	return wait(ctx, w, reply)
}

// Mutate runs fn against the document on the loop, the way page scripts
// change a live page. Mutations made by fn schedule a scan.
func (w *Watcher) Mutate(ctx context.Context, fn func(*dom.Document) error) error {
	reply := make(chan error, 1)
	if err := w.post(ctx, mutateEvent{fn: fn, reply: reply}); err != nil {
		return err
	}
	err, waitErr := wait(ctx, w, reply)
	if waitErr != nil {
		return waitErr
	}
	if err != nil {
		return fmt.Errorf("mutate document: %w", err)
	}
	return nil
}

// Navigate changes the page URL and scans at once.
func (w *Watcher) Navigate(ctx context.Context, pageURL string) error {
	reply := make(chan error, 1)
	if err := w.post(ctx, navigateEvent{url: pageURL, reply: reply}); err != nil {
		return err
	}
	err, waitErr := wait(ctx, w, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// Render writes the document as it is now.
func (w *Watcher) Render(ctx context.Context) (string, error) {
	var out string
	err := w.Mutate(ctx, func(doc *dom.Document) error {
		out = doc.String()
		return nil
	})
	return out, err
}
