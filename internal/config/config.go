package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/clarityfilter/internal/matcher"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "clarityfilter"

	// DefaultTimeout bounds one HTTP fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of documents filtered at once.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies clarityfilter in HTTP requests.
	DefaultUserAgent = "clarityfilter/1.0 (+https://github.com/nao1215/clarityfilter)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultViewportWidth and DefaultViewportHeight size the estimated
	// layout used for container size checks.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800

	// DefaultDebounce is the quiet period before a mutation-triggered scan.
	DefaultDebounce = 200 * time.Millisecond

	// DefaultHistoryLimit is the number of scans shown by history.
	DefaultHistoryLimit = 20
)

// Config holds all configuration options of one run.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Targets is the list of files or URLs to filter.
	Targets []string

	// PageURL is the URL assumed for local files, used for whitelist and
	// per-site lookups. Empty means the file:// URL of the file.
	PageURL string

	// Terms replace the stored terms for this run when not empty.
	Terms []string

	// Mode replaces the stored mode for this run when not empty.
	Mode string

	// PixelCellSize replaces the stored pixel cell size when not zero.
	PixelCellSize int

	// Allow adds whitelist entries for this run.
	Allow []string

	// RegexpEngine names the regular expression engine (backtracking, re2).
	RegexpEngine string

	// MatchTimeout bounds a single backtracking match.
	MatchTimeout time.Duration

	// Placeholder replaces matched words in replace mode.
	Placeholder string

	// ViewportWidth and ViewportHeight size the estimated layout.
	ViewportWidth  float64
	ViewportHeight float64

	// Debounce is the quiet period of the watch command.
	Debounce time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool

	// BatchSize is the number of documents filtered concurrently.
	BatchSize int

	// Timeout bounds one HTTP fetch.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy (host:port) for fetches.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Set to 0 to use the default.
	MaxBodySize int64

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .clarityfilter in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, nil when there is none.
	File *File

	// JSONReport selects JSON report output.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// OutputDir receives the filtered documents. Empty writes a single
	// document to stdout.
	OutputDir string

	// DBDir is the directory of the settings and history database.
	DBDir string

	// SaveToDB records scans in the history table.
	SaveToDB bool

	// ChangedOnly skips pages whose body matches the last recorded fetch.
	ChangedOnly bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		RegexpEngine:   matcher.EngineBacktracking.String(),
		MatchTimeout:   matcher.DefaultMatchTimeout,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		Debounce:       DefaultDebounce,
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for clarityfilter.
// On Linux: ~/.local/share/clarityfilter
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for clarityfilter.
// On Linux: ~/.config/clarityfilter
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by all commands and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Mode != "" {
		if _, err := settings.ParseMode(c.Mode); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
		}
	}
	if c.PixelCellSize != 0 &&
		(c.PixelCellSize < settings.MinPixelCellSize || c.PixelCellSize > settings.MaxPixelCellSize) {
		return ErrInvalidPixelCellSize
	}
	if _, err := matcher.ParseEngine(c.RegexpEngine); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEngine, c.RegexpEngine)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}
	if c.Debounce <= 0 {
		return ErrInvalidDebounce
	}
	return nil
}

// ValidateTargets checks Validate and that at least one target is given.
func (c *Config) ValidateTargets() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if len(c.Targets) > 1 && c.OutputDir == "" {
		return ErrOutputDirRequired
	}
	return c.Validate()
}

// Engine returns the configured regexp engine. Validate must have passed.
func (c *Config) Engine() matcher.Engine {
	e, err := matcher.ParseEngine(c.RegexpEngine)
	if err != nil {
		return matcher.EngineBacktracking
	}
	return e
}

// Apply returns s with the run overrides of c applied. Terms given on the
// command line replace the stored ones and enable filtering.
func (c *Config) Apply(s settings.Settings) settings.Settings {
	out := s.Clone()
	if len(c.Terms) > 0 {
		out.Terms = append([]string(nil), c.Terms...)
		out.Enabled = true
	}
	if c.Mode != "" {
		if m, err := settings.ParseMode(c.Mode); err == nil {
			out.Mode = m
		}
	}
	if c.PixelCellSize != 0 {
		out.PixelCellSize = c.PixelCellSize
	}
	out.Whitelist = append(out.Whitelist, c.Allow...)
	return settings.Normalize(out)
}

// ForPage returns the settings for the page at pageURL: the run overrides
// of c, then the site overrides of the configuration file.
func (c *Config) ForPage(s settings.Settings, pageURL string) settings.Settings {
	out := c.Apply(s)
	if c.File != nil {
		out = c.File.Apply(out, pageURL)
	}
	return out
}
