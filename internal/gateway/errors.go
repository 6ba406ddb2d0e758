package gateway

import "errors"

// Validation errors. Transports map them to client errors; everything else
// coming out of the gateway is a gpio.DriverError or a context error.
var (
	// ErrInvalidValue is returned when a written value is not 0 or 1.
	ErrInvalidValue = errors.New("gateway: value must be 0 or 1")

	// ErrInvalidSchedule is returned for a blink schedule with a zero
	// duration or a total above the configured maximum.
	ErrInvalidSchedule = errors.New("gateway: invalid blink schedule")
)
