package scope

import "errors"

var (
	// ErrEmptyHost is returned when a value has no host part at all.
	ErrEmptyHost = errors.New("empty host")

	// ErrInvalidHost is returned when a value cannot be reduced to a hostname.
	ErrInvalidHost = errors.New("invalid host")
)
