package controller

import "errors"

// Domain errors for the controller package.
var (
	// ErrPreconditionFailed is returned by UpdateStatus when the display,
	// target or alert light group is missing or empty. Nothing is written.
	ErrPreconditionFailed = errors.New("controller: display, target or alert lights unavailable")

	// ErrDestinationNotFound is returned when the consolidation destination is
	// absent or is not a cargo container.
	ErrDestinationNotFound = errors.New("controller: destination container not found")

	// ErrDestinationNoStorage is returned when the destination has no primary inventory.
	ErrDestinationNoStorage = errors.New("controller: destination has no inventory")

	// ErrBusy is returned when a dispatch arrives while another is running.
	ErrBusy = errors.New("controller: dispatch already in progress")
)
