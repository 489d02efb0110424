package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and tell which value is
// wrong. Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no file or URL to filter is given.
	ErrNoTarget = errors.New("no target specified: provide a file or URL")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMode is returned for an unknown concealment mode.
	ErrInvalidMode = errors.New("invalid mode: must be hide, blur, pixelate or replace")

	// ErrInvalidPixelCellSize is returned for a pixel cell size out of range.
	ErrInvalidPixelCellSize = errors.New("invalid pixel cell size: must be between 5 and 50")

	// ErrInvalidEngine is returned for an unknown regexp engine name.
	ErrInvalidEngine = errors.New("invalid regexp engine: must be backtracking or re2")

	// ErrInvalidViewport is returned when a viewport dimension is not positive.
	ErrInvalidViewport = errors.New("invalid viewport: width and height must be positive")

	// ErrInvalidDebounce is returned when the debounce window is not positive.
	ErrInvalidDebounce = errors.New("invalid debounce: must be positive")

	// ErrOutputDirRequired is returned when several targets would all be
	// written to standard output.
	ErrOutputDirRequired = errors.New("several targets require --output-dir")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
