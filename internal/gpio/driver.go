package gpio

// Direction is the direction a line is requested with.
type Direction int

const (
	// DirectionInput requests the line for reading.
	DirectionInput Direction = iota + 1
	// DirectionOutput requests the line for writing.
	DirectionOutput
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// MarshalText encodes the direction as its string form.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Driver is the platform GPIO capability consumed by the cache.
//
// Implementations live in sub-packages: cdev for the Linux character device
// and simdriver for an in-memory board. The cache walks a driver in a fixed
// order when it opens a line:
//
//	ctrl, err := driver.OpenController("gpiochip0")
//	line, err := ctrl.Line(17)
//	h, err := line.Request(gpio.DirectionOutput, 0, "http-gpio")
//	ctrl.Close() // h stays valid
//	err = h.SetValue(1)
//
// Errors returned by implementations are wrapped in *DriverError by the
// caller, so they should describe the platform failure only.
type Driver interface {
	// Controllers returns the names of the available controllers.
	Controllers() ([]string, error)

	// OpenController opens a controller by name (e.g. "gpiochip0").
	OpenController(name string) (Controller, error)
}

// Controller is an opened GPIO chip. Closing it does not release lines
// already requested through it.
type Controller interface {
	Info() ControllerInfo

	// Line returns the line at offset. Offsets at or beyond NumLines fail.
	Line(offset uint32) (Line, error)

	Close() error
}

// Line is one addressable line of an opened controller.
type Line interface {
	Info() (PinInfo, error)

	// Request claims the line with the given direction. For outputs the
	// line is driven to initial immediately.
	Request(dir Direction, initial int, consumer string) (Handle, error)
}

// Handle is a live, direction-bound claim on a line.
//
// Contract:
//   - Value fails with ErrWrongDirection on an output handle
//   - SetValue fails with ErrWrongDirection on an input handle
//   - Value and SetValue may be called concurrently
//   - After Close every method returns an error; none may panic
//
// The cache shares one handle between concurrent actions and closes it when
// the last of them releases it.
type Handle interface {
	// Value returns the logic level (0 or 1).
	Value() (int, error)

	// SetValue drives the line to value (0 or 1).
	SetValue(value int) error

	// Close releases the line back to the kernel.
	Close() error
}

// ControllerInfo describes a controller.
type ControllerInfo struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	NumLines uint32 `json:"num_lines"`
}

// PinInfo describes the current kernel view of a line.
// Name and CurrentlyUsedBy are nil when the kernel reports no value.
type PinInfo struct {
	Name            *string `json:"name"`
	CurrentlyUsedBy *string `json:"currently_used_by"`
	IsUsed          bool    `json:"is_used"`
	IsKernel        bool    `json:"is_kernel"`
	IsOutput        bool    `json:"is_output"`
	IsActiveLow     bool    `json:"is_active_low"`
	Offset          uint32  `json:"offset"`
}

// Direction returns the line direction reported in the info.
func (p PinInfo) Direction() Direction {
	if p.IsOutput {
		return DirectionOutput
	}
	return DirectionInput
}

// OptionalString returns nil for an empty string, or a pointer to s.
// Drivers use it to fill the optional fields of PinInfo.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
