package manager

import "errors"

// Sentinel errors for manager operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownDevice is returned when no device with the given ID exists.
	ErrUnknownDevice = errors.New("manager: unknown device")

	// ErrDuplicateDevice is returned when registering an ID twice.
	ErrDuplicateDevice = errors.New("manager: duplicate device id")

	// ErrNotSupported is returned when a device lacks the capability an
	// operation needs (e.g. stream_start on the display).
	ErrNotSupported = errors.New("manager: operation not supported by device")

	// ErrUnknownOp is returned for command ops the dispatcher doesn't know.
	ErrUnknownOp = errors.New("manager: unknown operation")
)
