// Package simdriver provides an in-memory gpio.Driver.
//
// It stands in for the character device on development machines and in
// tests. Each simulated line behaves like a kernel line: it can be held by
// one request at a time (a second request fails with ErrBusy), inputs read
// the level set with SetPull, and outputs drive the level reported by Level.
package simdriver

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

var (
	// ErrNoController is returned when opening an unknown controller.
	ErrNoController = errors.New("simdriver: no such controller")

	// ErrOffset is returned for offsets beyond the last line.
	ErrOffset = errors.New("simdriver: offset out of range")

	// ErrBusy is returned when requesting a line that is already held.
	ErrBusy = errors.New("simdriver: device or resource busy")

	// ErrClosed is returned by handles used after Close.
	ErrClosed = errors.New("simdriver: line closed")
)

// Chip describes one simulated controller.
type Chip struct {
	Name      string
	Label     string
	Lines     uint32
	LineNames map[uint32]string
}

type lineState struct {
	name      string
	pull      int
	level     int
	held      bool
	consumer  string
	direction gpio.Direction
}

type chipState struct {
	label string
	lines []lineState
}

// Driver is a simulated GPIO board. It is safe for concurrent use.
type Driver struct {
	mu    sync.Mutex
	chips map[string]*chipState
}

// New builds a board from chip descriptions.
func New(chips ...Chip) *Driver {
	d := &Driver{chips: make(map[string]*chipState, len(chips))}
	for _, c := range chips {
		cs := &chipState{label: c.Label, lines: make([]lineState, c.Lines)}
		for offset, name := range c.LineNames {
			if offset < c.Lines {
				cs.lines[offset].name = name
			}
		}
		d.chips[c.Name] = cs
	}
	return d
}

// Controllers returns the simulated controller names, sorted.
func (d *Driver) Controllers() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.chips))
	for name := range d.chips {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// OpenController opens a simulated controller.
func (d *Driver) OpenController(name string) (gpio.Controller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cs, ok := d.chips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoController, name)
	}
	return &controller{driver: d, name: name, chip: cs}, nil
}

// SetPull sets the level an input line reads.
func (d *Driver) SetPull(pin gpio.PinID, level int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ls, err := d.line(pin)
	if err != nil {
		return err
	}
	ls.pull = level & 1
	if !ls.held || ls.direction != gpio.DirectionOutput {
		ls.level = ls.pull
	}
	return nil
}

// Level returns the current level of a line.
func (d *Driver) Level(pin gpio.PinID) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ls, err := d.line(pin)
	if err != nil {
		return 0, err
	}
	return ls.level, nil
}

// line must be called with d.mu held.
func (d *Driver) line(pin gpio.PinID) (*lineState, error) {
	cs, ok := d.chips[pin.Controller]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoController, pin.Controller)
	}
	if pin.Offset >= uint32(len(cs.lines)) {
		return nil, fmt.Errorf("%w: %d", ErrOffset, pin.Offset)
	}
	return &cs.lines[pin.Offset], nil
}

type controller struct {
	driver *Driver
	name   string
	chip   *chipState
}

func (c *controller) Info() gpio.ControllerInfo {
	return gpio.ControllerInfo{Name: c.name, Label: c.chip.label, NumLines: uint32(len(c.chip.lines))}
}

func (c *controller) Line(offset uint32) (gpio.Line, error) {
	if offset >= uint32(len(c.chip.lines)) {
		return nil, fmt.Errorf("%w: %d", ErrOffset, offset)
	}
	return &line{driver: c.driver, pin: gpio.NewPinID(c.name, offset)}, nil
}

func (c *controller) Close() error { return nil }

type line struct {
	driver *Driver
	pin    gpio.PinID
}

func (l *line) Info() (gpio.PinInfo, error) {
	l.driver.mu.Lock()
	defer l.driver.mu.Unlock()

	ls, err := l.driver.line(l.pin)
	if err != nil {
		return gpio.PinInfo{}, err
	}
	return gpio.PinInfo{
		Name:            gpio.OptionalString(ls.name),
		CurrentlyUsedBy: gpio.OptionalString(ls.consumer),
		IsUsed:          ls.held,
		IsKernel:        ls.held,
		IsOutput:        ls.held && ls.direction == gpio.DirectionOutput,
		Offset:          l.pin.Offset,
	}, nil
}

func (l *line) Request(dir gpio.Direction, initial int, consumer string) (gpio.Handle, error) {
	l.driver.mu.Lock()
	defer l.driver.mu.Unlock()

	ls, err := l.driver.line(l.pin)
	if err != nil {
		return nil, err
	}
	if ls.held {
		return nil, ErrBusy
	}

	ls.held = true
	ls.consumer = consumer
	ls.direction = dir
	if dir == gpio.DirectionOutput {
		ls.level = initial & 1
	} else {
		ls.level = ls.pull
	}
	return &handle{driver: l.driver, pin: l.pin, dir: dir}, nil
}

type handle struct {
	driver *Driver
	pin    gpio.PinID
	dir    gpio.Direction
	closed bool // guarded by driver.mu
}

func (h *handle) Value() (int, error) {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	if h.closed {
		return 0, ErrClosed
	}
	if h.dir != gpio.DirectionInput {
		return 0, gpio.ErrWrongDirection
	}
	ls, err := h.driver.line(h.pin)
	if err != nil {
		return 0, err
	}
	return ls.level, nil
}

func (h *handle) SetValue(value int) error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if h.dir != gpio.DirectionOutput {
		return gpio.ErrWrongDirection
	}
	ls, err := h.driver.line(h.pin)
	if err != nil {
		return err
	}
	ls.level = value & 1
	return nil
}

func (h *handle) Close() error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	h.closed = true

	ls, err := h.driver.line(h.pin)
	if err != nil {
		return err
	}
	ls.held = false
	ls.consumer = ""
	ls.level = ls.pull
	return nil
}
