package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/clarityfilter/internal/config"
	"github.com/nao1215/clarityfilter/internal/database"
	"github.com/nao1215/clarityfilter/internal/dom"
	"github.com/nao1215/clarityfilter/internal/engine"
	"github.com/nao1215/clarityfilter/internal/fetch"
	"github.com/nao1215/clarityfilter/internal/log"
	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/model"
	"github.com/nao1215/clarityfilter/internal/pipeline"
	"github.com/nao1215/clarityfilter/internal/report"
	"github.com/nao1215/clarityfilter/internal/scope"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// NewFilterCmd creates the filter command.
func NewFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [file|url...]",
		Short: "Filter HTML files or pages once",
		Long: `Filter loads each file or URL, conceals the containers that mention a
filtered term and writes the resulting HTML.

With a single target the filtered HTML goes to standard output and the
report to standard error. With --output-dir every document is written to
that directory and the report goes to standard output.

Term, mode and whitelist flags apply to this run only; stored settings are
not changed.

Examples:
  # Filter a saved page with the stored settings
  clarityfilter filter page.html > filtered.html

  # Blur everything mentioning two terms on two live pages
  clarityfilter filter -t "Some Name" -t "Other" --mode blur \
    -d out/ https://news.example.com/ https://blog.example.com/

  # JSON report
  clarityfilter filter -j -d out/ *.html`,
		Args: cobra.ArbitraryArgs,
		RunE: runFilterCmd,
	}

	cmd.Flags().StringSliceP("term", "t", nil,
		"Term to filter for this run (repeatable, replaces stored terms)")
	cmd.Flags().String("mode", "",
		"Concealment mode: hide, blur, pixelate or replace")
	cmd.Flags().Int("pixel-cell", 0,
		fmt.Sprintf("Pixelate cell size (%d-%d)", settings.MinPixelCellSize, settings.MaxPixelCellSize))
	cmd.Flags().StringSlice("allow", nil,
		"Whitelist a site for this run (repeatable)")
	cmd.Flags().String("page-url", "",
		"URL assumed for local files (whitelist and per-site settings)")
	cmd.Flags().String("placeholder", "",
		"Replacement text used by the replace mode")
	cmd.Flags().Duration("match-timeout", matcher.DefaultMatchTimeout,
		"Time limit for a single backtracking match")
	cmd.Flags().Float64("viewport-width", config.DefaultViewportWidth,
		"Viewport width used by the layout estimate")
	cmd.Flags().Float64("viewport-height", config.DefaultViewportHeight,
		"Viewport height used by the layout estimate")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of documents filtered in parallel")
	cmd.Flags().DurationP("timeout", "T", config.DefaultTimeout,
		"Timeout for fetching a URL")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy (host:port) for fetching URLs")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for fetching URLs")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().BoolP("json", "j", false,
		"Output the report as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the report as Markdown")
	cmd.Flags().StringP("report", "o", "",
		"Write the report to a file")
	cmd.Flags().StringP("output-dir", "d", "",
		"Directory for filtered documents")
	cmd.Flags().Bool("no-history", false,
		"Do not record scans and fetched pages in the database")
	cmd.Flags().Bool("changed-only", false,
		"Skip pages whose body has not changed since the last recorded fetch")

	return cmd
}

// runFilterCmd executes the filter command.
func runFilterCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildFilterConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTargets(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	return runFilter(ctx, cmd, cfg, logger)
}

// buildFilterConfig creates the configuration from global and filter flags.
func buildFilterConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Targets = args

	flags := cmd.Flags()
	if cfg.Terms, err = flags.GetStringSlice("term"); err != nil {
		return nil, err
	}
	if cfg.Mode, err = flags.GetString("mode"); err != nil {
		return nil, err
	}
	if cfg.PixelCellSize, err = flags.GetInt("pixel-cell"); err != nil {
		return nil, err
	}
	if cfg.Allow, err = flags.GetStringSlice("allow"); err != nil {
		return nil, err
	}
	if cfg.PageURL, err = flags.GetString("page-url"); err != nil {
		return nil, err
	}
	if cfg.Placeholder, err = flags.GetString("placeholder"); err != nil {
		return nil, err
	}
	if cfg.MatchTimeout, err = flags.GetDuration("match-timeout"); err != nil {
		return nil, err
	}
	if cfg.ViewportWidth, err = flags.GetFloat64("viewport-width"); err != nil {
		return nil, err
	}
	if cfg.ViewportHeight, err = flags.GetFloat64("viewport-height"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	if cfg.ChangedOnly, err = flags.GetBool("changed-only"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// filterRun holds what every document of one filter run shares.
type filterRun struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.DB
	stored  settings.Settings
	fetcher *fetch.Fetcher
	names   map[string]string
	stdout  io.Writer
}

// runFilter filters all targets and writes the reports.
func runFilter(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := storedSettings(ctx, db, logger)
	if err != nil {
		return err
	}
	log.SetTerms(logger, runTerms(cfg, stored))

	fetcher, err := fetch.New(
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithProxy(cfg.ProxyAddress),
	)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	run := &filterRun{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		stored:  stored,
		fetcher: fetcher,
		names:   outputNames(cfg.Targets),
		stdout:  cmd.OutOrStdout(),
	}

	logger.Info("starting filter",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	startTime := time.Now()
	reports := make([]*model.ScanReport, len(cfg.Targets))
	var mu sync.Mutex
	bp := pipeline.NewBatchProcessor(run.filterTarget,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r *model.ScanReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		reports[index] = r
		if cfg.SaveToDB {
			if _, err := db.InsertScan(ctx, r); err != nil {
				logger.Error("failed to save scan", "url", r.URL, "error", err)
			}
		}
	})
	logger.Info("filter complete", "elapsed", time.Since(startTime).Round(time.Millisecond))

	completed := make([]*model.ScanReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			completed = append(completed, r)
		}
	}

	if err := run.writeReports(cmd, completed); err != nil {
		return err
	}
	if batchErr != nil {
		return batchErr
	}
	if summary := model.NewSummary(completed); summary.Failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", summary.Failed, summary.Documents)
	}
	return nil
}

// filterTarget loads, scans and writes one document. Each call builds its
// own document and engine.
func (r *filterRun) filterTarget(ctx context.Context, target string) (*model.ScanReport, error) {
	page, err := r.load(ctx, target)
	if err != nil {
		return nil, err
	}
	host, _ := scope.Host(page.URL)

	if r.cfg.ChangedOnly {
		unchanged, err := r.db.Unchanged(ctx, page)
		if err != nil {
			r.logger.Warn("could not compare with the last fetch", "url", page.URL, "error", err)
		}
		if unchanged {
			rep := model.NewScanReport(page.URL)
			rep.Host = host
			rep.Skipped = model.SkipUnchanged
			return rep, nil
		}
	}

	doc, err := dom.Parse(bytes.NewReader(page.Raw), page.URL,
		dom.WithViewport(r.cfg.ViewportWidth, r.cfg.ViewportHeight))
	if err != nil {
		return nil, err
	}

	e := engine.New(doc, r.cfg.ForPage(r.stored, page.URL),
		engine.WithLogger(r.logger.With("url", page.URL)),
		engine.WithRegexpEngine(r.cfg.Engine()),
		engine.WithMatchTimeout(r.cfg.MatchTimeout),
		engine.WithPlaceholder(r.cfg.Placeholder),
	)
	rep := e.Scan(ctx)
	if page.Truncated {
		r.logger.Warn("document was truncated", "url", page.URL, "limit", r.cfg.MaxBodySize)
	}

	if err := r.writeDocument(target, doc); err != nil {
		rep.SetError(err)
	}
	if r.cfg.SaveToDB {
		if err := r.db.UpsertPage(ctx, page); err != nil {
			r.logger.Error("failed to save page", "url", page.URL, "error", err)
		}
	}
	return rep, nil
}

// load fetches a URL or reads a file.
func (r *filterRun) load(ctx context.Context, target string) (*model.Page, error) {
	if fetch.IsURL(target) {
		return r.fetcher.Fetch(ctx, target)
	}
	return fetch.LoadFile(target, r.cfg.PageURL)
}

// writeDocument writes the filtered document to the output directory or to
// standard output.
func (r *filterRun) writeDocument(target string, doc *dom.Document) error {
	if r.cfg.OutputDir == "" {
		return doc.Render(r.stdout)
	}
	path := filepath.Join(r.cfg.OutputDir, r.names[target])
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := doc.Render(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeReports writes the reports in the requested format.
func (r *filterRun) writeReports(cmd *cobra.Command, reports []*model.ScanReport) error {
	var output io.Writer
	switch {
	case r.cfg.ReportFile != "":
		dir := filepath.Dir(r.cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(r.cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	case r.cfg.OutputDir != "":
		output = cmd.OutOrStdout()
	default:
		// Standard output carries the document.
		output = cmd.ErrOrStderr()
	}

	if r.cfg.JSONReport {
		_, err := report.NewJSONWriter(output, report.WithPrettyPrint()).
			WriteBatch(report.NewBatchReport(reports, getVersion()))
		return err
	}

	var w report.Writer
	if r.cfg.MarkdownReport {
		w = report.NewMarkdownWriter(output)
	} else {
		w = report.NewSimpleWriter(output, report.WithVerbose(r.cfg.Verbose))
	}
	if len(reports) > 1 || r.cfg.MarkdownReport {
		if _, err := w.WriteSummary(model.NewSummary(reports)); err != nil {
			return err
		}
	}
	for _, rep := range reports {
		if _, err := w.Write(rep); err != nil {
			return err
		}
	}
	return nil
}

// runTerms returns every term this run may filter, so the logger can mask
// them.
func runTerms(cfg *config.Config, stored settings.Settings) []string {
	terms := append([]string(nil), stored.Terms...)
	terms = append(terms, cfg.Terms...)
	if cfg.File != nil {
		terms = append(terms, cfg.File.Defaults.ExtraTerms...)
		for _, site := range cfg.File.Sites {
			terms = append(terms, site.ExtraTerms...)
		}
	}
	return terms
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// outputNames assigns every target a distinct file name in the output
// directory.
func outputNames(targets []string) map[string]string {
	names := make(map[string]string, len(targets))
	used := make(map[string]int, len(targets))
	for _, target := range targets {
		if _, ok := names[target]; ok {
			continue
		}
		name := baseName(target)
		used[name]++
		if n := used[name]; n > 1 {
			ext := filepath.Ext(name)
			name = strings.TrimSuffix(name, ext) + "-" + strconv.Itoa(n) + ext
		}
		names[target] = name
	}
	return names
}

// baseName derives a file name from a file path or URL.
func baseName(target string) string {
	var name string
	if fetch.IsURL(target) {
		u, _ := url.Parse(target)
		name = u.Host + strings.TrimSuffix(u.Path, "/")
		name = unsafeName.ReplaceAllString(name, "_")
	} else {
		name = filepath.Base(target)
	}
	if name == "" || name == "." {
		name = "document"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return name
	default:
		return name + ".html"
	}
}
