package provision

import "errors"

var (
	// ErrEmptyPrefix is returned when no prefix is configured.
	ErrEmptyPrefix = errors.New("provision: prefix is empty")

	// ErrInvalidScope is returned for a scope other than grid or construct.
	ErrInvalidScope = errors.New("provision: invalid scope")
)
