package camera

import "errors"

// Sentinel errors returned by sensor operations.
var (
	// ErrBusy rejects an operation that is not allowed while the
	// sensor is streaming (mode or flip changes).
	ErrBusy = errors.New("camera: busy streaming")

	// ErrNotPowered rejects an operation that needs the sensor
	// powered.
	ErrNotPowered = errors.New("camera: not powered")

	// ErrUnknownControl names a control this sensor does not have.
	ErrUnknownControl = errors.New("camera: unknown control")

	// ErrBadValue rejects a control value outside its range.
	ErrBadValue = errors.New("camera: control value out of range")

	// ErrWrongChip indicates the probed device did not identify as
	// an OV2710.
	ErrWrongChip = errors.New("camera: unexpected chip id")
)
