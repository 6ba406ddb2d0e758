package gpio

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gpio package.
//
// Check them with errors.Is:
//
//	if errors.Is(err, gpio.ErrDriver) {
//	    // hardware or kernel failure
//	}
var (
	// ErrDriver matches every *DriverError.
	ErrDriver = errors.New("gpio: driver error")

	// ErrWrongDirection is returned by handles used against the direction
	// they were requested with (reading an output, writing an input).
	ErrWrongDirection = errors.New("gpio: line requested with another direction")

	// ErrInvalidPin is returned when a pin string cannot be parsed.
	ErrInvalidPin = errors.New("gpio: invalid pin")

	// ErrCacheClosed is returned by operations on a closed Cache.
	ErrCacheClosed = errors.New("gpio: cache closed")
)

// Stage names the driver step that failed.
type Stage string

// Driver stages, in the order the cache walks them when opening a line.
const (
	StageListControllers Stage = "list_controllers"
	StageOpenController  Stage = "open_controller"
	StageGetLine         Stage = "get_line"
	StageLineInfo        Stage = "line_info"
	StageRequestLine     Stage = "request_line"
	StageAction          Stage = "action"
)

// DriverError wraps a failure reported by a Driver, a Controller, a Line or
// a Handle. It is the only error kind the Cache returns for hardware
// problems; the message of the underlying error is kept intact.
type DriverError struct {
	Stage Stage
	Pin   PinID
	Err   error
}

func (e *DriverError) Error() string {
	if e.Pin.Controller == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Pin, e.Err)
}

// Unwrap returns the platform error.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// Is makes every DriverError match ErrDriver.
func (e *DriverError) Is(target error) bool {
	return target == ErrDriver
}

func driverError(stage Stage, pin PinID, err error) error {
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{Stage: stage, Pin: pin, Err: err}
}
