package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // degraded, keep going
//	}
var (
	// ErrDeviceNotFound is returned when no device matches an ID or name.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidKind is returned when a kind value is not recognised.
	ErrInvalidKind = errors.New("device: invalid kind")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidState is returned when a reading is out of range.
	ErrInvalidState = errors.New("device: invalid state")

	// ErrGroupNotFound is returned when no group has the requested name.
	ErrGroupNotFound = errors.New("device: group not found")

	// ErrGroupExists is returned when creating a group whose name is taken.
	ErrGroupExists = errors.New("device: group already exists")

	// ErrInventoryNotFound is returned when a device has no inventory at the requested slot.
	ErrInventoryNotFound = errors.New("device: inventory not found")

	// ErrInventoryFull is returned when the destination lacks free volume for a transfer.
	ErrInventoryFull = errors.New("device: inventory full")

	// ErrItemNotFound is returned when an item is no longer in its source inventory.
	ErrItemNotFound = errors.New("device: item not found")

	// ErrNotSupported is returned when a device kind lacks the requested capability.
	ErrNotSupported = errors.New("device: capability not supported")
)
