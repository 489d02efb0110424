package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/clarityfilter/internal/config"
	"github.com/nao1215/clarityfilter/internal/database"
	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/engine"
	"github.com/nao1215/clarityfilter/internal/fetch"
	"github.com/nao1215/clarityfilter/internal/log"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/report"
	"github.com/nao1215/clarityfilter/internal/settings"
	"github.com/nao1215/clarityfilter/internal/watch"
)

// defaultPollInterval is how often the database is checked for settings
// written by another process.
const defaultPollInterval = time.Second

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file|url>",
		Short: "Follow a document while content is added to it",
		Long: `Watch loads a document, filters it and keeps it filtered while HTML
fragments arriving on standard input are appended to it, the way an
infinitely scrolling page grows.

Each input line is one HTML fragment. A few directives are understood:
  !rescan          scan the whole document now
  !clear           remove every concealment
  !navigate <url>  change the page URL (whitelist and site settings follow)

Settings saved by another clarityfilter process, for example
"clarityfilter settings mode blur", apply while watching. Scan events are
written to standard error. When the input ends the final document is
written to standard output or --output.

Examples:
  tail -f fragments.html | clarityfilter watch page.html -o filtered.html`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	cmd.Flags().String("page-url", "",
		"URL assumed for a local file (whitelist and per-site settings)")
	cmd.Flags().String("into", "",
		"Id of the element fragments are appended to (default: body)")
	cmd.Flags().Duration("debounce", config.DefaultDebounce,
		"Quiet period after the last change before a scan")
	cmd.Flags().Duration("poll", defaultPollInterval,
		"How often stored settings are checked for changes")
	cmd.Flags().String("placeholder", "",
		"Replacement text used by the replace mode")
	cmd.Flags().Duration("match-timeout", matcher.DefaultMatchTimeout,
		"Time limit for a single backtracking match")
	cmd.Flags().StringP("output", "o", "",
		"Write the final document to a file")
	cmd.Flags().BoolP("json", "j", false,
		"Write scan events as JSON lines")

	return cmd
}

// watchOptions are the watch flags that have no Config field.
type watchOptions struct {
	into   string
	poll   time.Duration
	output string
	json   bool
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Targets = args

	var opts watchOptions
	flags := cmd.Flags()
	if cfg.PageURL, err = flags.GetString("page-url"); err != nil {
		return err
	}
	if cfg.Debounce, err = flags.GetDuration("debounce"); err != nil {
		return err
	}
	if cfg.Placeholder, err = flags.GetString("placeholder"); err != nil {
		return err
	}
	if cfg.MatchTimeout, err = flags.GetDuration("match-timeout"); err != nil {
		return err
	}
	if opts.into, err = flags.GetString("into"); err != nil {
		return err
	}
	if opts.poll, err = flags.GetDuration("poll"); err != nil {
		return err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return err
	}
	if err := cfg.ValidateTargets(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if opts.poll <= 0 {
		return fmt.Errorf("configuration error: poll interval must be positive")
	}

	logger := setupLogger(cmd, cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	err = runWatch(ctx, cmd, cfg, opts, logger)
	if isCancelled(err) {
		return nil
	}
	return err
}

// runWatch loads the document and runs the watcher until the input ends.
func runWatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts watchOptions, logger *slog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := storedSettings(ctx, db, logger)
	if err != nil {
		return err
	}

	page, err := loadTarget(ctx, cfg, cfg.Targets[0])
	if err != nil {
		return err
	}
	doc, err := dom.Parse(bytes.NewReader(page.Raw), page.URL,
		dom.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight))
	if err != nil {
		return err
	}

	store := newPageStore(db, cfg, page.URL, stored, logger)
	e := engine.New(doc, cfg.ForPage(stored, page.URL),
		engine.WithLogger(logger),
		engine.WithRegexpEngine(cfg.Engine()),
		engine.WithPlaceholder(cfg.Placeholder),
		engine.WithMatchTimeout(cfg.MatchTimeout),
	)

	events := newEventPrinter(cmd.ErrOrStderr(), opts.json)
	w := watch.New(e,
		watch.WithDebounce(cfg.Debounce),
		watch.WithLogger(logger),
		watch.WithStore(store),
		watch.WithOnScan(func(r *model.ScanReport) {
			if cfg.SaveToDB {
				if _, err := db.InsertScan(ctx, r); err != nil {
					logger.Error("failed to save scan", "url", r.URL, "error", err)
				}
			}
			events.print(r)
		}),
	)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		return db.Watch(gctx, opts.poll)
	})
	g.Go(func() error {
		defer stop()
		if err := feed(gctx, w, store, cmd.InOrStdin(), opts.into); err != nil {
			return err
		}
		// Scan what the last fragments added before rendering.
		if _, err := w.Rescan(gctx); err != nil {
			return err
		}
		final, err := w.Render(gctx)
		if err != nil {
			return err
		}
		return writeFinal(cmd, opts.output, final)
	})

	if err := g.Wait(); err != nil && !isCancelled(err) {
		return err
	}
	// Cancellation by a signal is not an error, but an interrupted run has
	// no final document.
	return ctx.Err()
}

// feed reads fragments and directives from r and applies them through the
// watcher until r ends.
func feed(ctx context.Context, w *watch.Watcher, store *pageStore, r io.Reader, into string) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), int(model.MaxPageSize))
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				return nil
			}
			if err := apply(ctx, w, store, strings.TrimSpace(line), into); err != nil {
				return err
			}
		}
	}
}

// apply handles one input line.
func apply(ctx context.Context, w *watch.Watcher, store *pageStore, line, into string) error {
	switch {
	case line == "":
		return nil
	case line == "!rescan":
		_, err := w.Rescan(ctx)
		return err
	case line == "!clear":
		_, err := w.Clear(ctx)
		return err
	case strings.HasPrefix(line, "!navigate "):
		pageURL := strings.TrimSpace(strings.TrimPrefix(line, "!navigate "))
		if err := w.Navigate(ctx, pageURL); err != nil {
			return err
		}
		store.SetURL(pageURL)
		return nil
	}
	return w.Mutate(ctx, func(doc *dom.Document) error {
		parent := doc.Body()
		if into != "" {
			if parent = doc.ElementByID(into); parent == nil {
				return fmt.Errorf("no element with id %q", into)
			}
		}
		_, err := doc.AppendHTML(parent, line)
		return err
	})
}

// writeFinal writes the final document to path, or to standard output.
func writeFinal(cmd *cobra.Command, path, document string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), document)
		return err
	}
	if err := os.WriteFile(path, []byte(document), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// loadTarget fetches a URL or reads a file for a single-document command.
func loadTarget(ctx context.Context, cfg *config.Config, target string) (*model.Page, error) {
	if !fetch.IsURL(target) {
		return fetch.LoadFile(target, cfg.PageURL)
	}
	f, err := fetch.New(
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithProxy(cfg.ProxyAddress),
	)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, target)
}

// pageStore presents stored settings with this run's configuration file
// applied for the current page URL.
type pageStore struct {
	base   *database.DB
	cfg    *config.Config
	logger *slog.Logger

	mu     sync.Mutex
	url    string
	last   settings.Settings
	subs   map[int]func(settings.Settings)
	nextID int
}

var _ settings.Store = (*pageStore)(nil)

func newPageStore(db *database.DB, cfg *config.Config, pageURL string, stored settings.Settings, logger *slog.Logger) *pageStore {
	return &pageStore{
		base:   db,
		cfg:    cfg,
		logger: logger,
		url:    pageURL,
		last:   stored,
		subs:   make(map[int]func(settings.Settings)),
	}
}

// Get implements settings.Store.
func (p *pageStore) Get(ctx context.Context) (settings.Settings, error) {
	s, err := p.base.Get(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	p.mu.Lock()
	p.last = s
	pageURL := p.url
	p.mu.Unlock()
	return p.cfg.ForPage(s, pageURL), nil
}

// OnChange implements settings.Store.
func (p *pageStore) OnChange(fn func(settings.Settings)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	cancel := p.base.OnChange(func(s settings.Settings) {
		p.mu.Lock()
		p.last = s
		pageURL := p.url
		p.mu.Unlock()
		log.SetTerms(p.logger, s.Terms)
		fn(p.cfg.ForPage(s, pageURL))
	})
	return func() {
		cancel()
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SetURL records a navigation and republishes the settings for the new
// page, since per-site overrides may differ.
func (p *pageStore) SetURL(pageURL string) {
	p.mu.Lock()
	p.url = pageURL
	last := p.last
	subs := make([]func(settings.Settings), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(p.cfg.ForPage(last, pageURL))
	}
}

// eventPrinter writes one line per scan.
type eventPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	json *report.JSONWriter
}

func newEventPrinter(out io.Writer, asJSON bool) *eventPrinter {
	p := &eventPrinter{out: out}
	if asJSON {
		p.json = report.NewJSONWriter(out)
	}
	return p
}

func (p *eventPrinter) print(r *model.ScanReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json != nil {
		_, _ = p.json.Write(r)
		return
	}
	if r.Skipped != model.SkipNone {
		fmt.Fprintf(p.out, "[%s] skipped (%s), cleared=%d\n", r.Trigger, r.Skipped, r.Cleared)
		return
	}
	fmt.Fprintf(p.out, "[%s] newly=%d active=%d (%s)\n",
		r.Trigger, r.Newly, r.Active, r.Duration.Round(time.Microsecond))
}
