package host

import "errors"

var (
	// ErrInvalidSchedule is returned by New when the tick spec does not parse.
	ErrInvalidSchedule = errors.New("host: invalid schedule")

	// ErrAlreadyStarted is returned by Start on a running host.
	ErrAlreadyStarted = errors.New("host: already started")
)
