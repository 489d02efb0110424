package matcher

import "errors"

// Compilation errors. Each one means the matcher is absent.
var (
	// ErrNoTerms is returned when no usable term remains after normalization.
	ErrNoTerms = errors.New("no usable terms")

	// ErrTooManyTerms is returned when the list exceeds MaxTerms.
	ErrTooManyTerms = errors.New("too many terms")

	// ErrPatternTooLong is returned when the assembled alternation exceeds
	// MaxPatternLength.
	ErrPatternTooLong = errors.New("pattern too long")

	// ErrCompile is returned when the regular expression engine rejects
	// the pattern.
	ErrCompile = errors.New("failed to compile pattern")
)
