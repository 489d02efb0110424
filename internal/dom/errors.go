package dom

import "errors"

// Document errors.
var (
	// ErrParse is returned when HTML cannot be parsed.
	ErrParse = errors.New("failed to parse HTML")

	// ErrInvalidURL is returned when the page URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid page URL")

	// ErrNotElement is returned when an operation needs an element node.
	ErrNotElement = errors.New("node is not an element")
)
