package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var errMockClosed = errors.New("mock: handle closed")

type mockChip struct {
	label    string
	numLines uint32
	names    map[uint32]string
}

type valueChange struct {
	pin   PinID
	value int
	at    time.Time
}

// mockDriver is an in-memory Driver that counts every call the cache makes.
type mockDriver struct {
	mu sync.Mutex

	chips  map[string]mockChip
	values map[PinID]int

	// Error injection
	listErr    error
	openErrs   map[string]error
	infoErrs   map[PinID]error
	requestErr error
	actionErr  error

	// Counters
	controllerOpens int
	requests        int
	actions         int
	handleCloses    int
	history         []valueChange
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		chips: map[string]mockChip{
			"gpiochip0": {label: "pinctrl-bcm2711", numLines: 8, names: map[uint32]string{4: "GPIO4", 17: "GPIO17"}},
			"gpiochip1": {label: "raspberrypi-exp-gpio", numLines: 4},
		},
		values:   make(map[PinID]int),
		openErrs: make(map[string]error),
		infoErrs: make(map[PinID]error),
	}
}

func (d *mockDriver) Controllers() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listErr != nil {
		return nil, d.listErr
	}
	names := make([]string, 0, len(d.chips)+len(d.openErrs))
	for name := range d.chips {
		names = append(names, name)
	}
	for name := range d.openErrs {
		if _, ok := d.chips[name]; !ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (d *mockDriver) OpenController(name string) (Controller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.controllerOpens++
	if err := d.openErrs[name]; err != nil {
		return nil, err
	}
	chip, ok := d.chips[name]
	if !ok {
		return nil, fmt.Errorf("open /dev/%s: no such file or directory", name)
	}
	return &mockController{driver: d, name: name, chip: chip}, nil
}

func (d *mockDriver) setActionErr(err error) {
	d.mu.Lock()
	d.actionErr = err
	d.mu.Unlock()
}

func (d *mockDriver) counts() (requests, actions, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests, d.actions, d.handleCloses
}

func (d *mockDriver) changes(pin PinID) []int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var values []int
	for _, c := range d.history {
		if c.pin == pin {
			values = append(values, c.value)
		}
	}
	return values
}

type mockController struct {
	driver *mockDriver
	name   string
	chip   mockChip
}

func (c *mockController) Info() ControllerInfo {
	return ControllerInfo{Name: c.name, Label: c.chip.label, NumLines: c.chip.numLines}
}

func (c *mockController) Line(offset uint32) (Line, error) {
	if offset >= c.chip.numLines {
		return nil, fmt.Errorf("offset %d out of range", offset)
	}
	return &mockLine{driver: c.driver, pin: NewPinID(c.name, offset), name: c.chip.names[offset]}, nil
}

func (c *mockController) Close() error { return nil }

type mockLine struct {
	driver *mockDriver
	pin    PinID
	name   string
}

func (l *mockLine) Info() (PinInfo, error) {
	l.driver.mu.Lock()
	defer l.driver.mu.Unlock()

	if err := l.driver.infoErrs[l.pin]; err != nil {
		return PinInfo{}, err
	}
	return PinInfo{Name: OptionalString(l.name), Offset: l.pin.Offset}, nil
}

func (l *mockLine) Request(dir Direction, initial int, _ string) (Handle, error) {
	d := l.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.requestErr != nil {
		return nil, d.requestErr
	}
	d.requests++
	if dir == DirectionOutput {
		d.values[l.pin] = initial
	}
	return &mockHandle{driver: d, pin: l.pin, dir: dir}, nil
}

type mockHandle struct {
	driver *mockDriver
	pin    PinID
	dir    Direction
	closed bool // guarded by driver.mu
}

func (h *mockHandle) Value() (int, error) {
	d := h.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	d.actions++
	switch {
	case h.closed:
		return 0, errMockClosed
	case d.actionErr != nil:
		return 0, d.actionErr
	case h.dir != DirectionInput:
		return 0, ErrWrongDirection
	}
	return d.values[h.pin], nil
}

func (h *mockHandle) SetValue(value int) error {
	d := h.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	d.actions++
	switch {
	case h.closed:
		return errMockClosed
	case d.actionErr != nil:
		return d.actionErr
	case h.dir != DirectionOutput:
		return ErrWrongDirection
	}
	d.values[h.pin] = value
	d.history = append(d.history, valueChange{pin: h.pin, value: value, at: time.Now()})
	return nil
}

func (h *mockHandle) Close() error {
	d := h.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	if h.closed {
		return errMockClosed
	}
	h.closed = true
	d.handleCloses++
	return nil
}
