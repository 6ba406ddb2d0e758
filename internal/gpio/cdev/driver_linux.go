//go:build linux

package cdev

import (
	"fmt"
	"strings"

	"github.com/warthog618/go-gpiocdev"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

// Driver opens controllers from /dev.
type Driver struct{}

// New returns the character-device driver.
func New() *Driver {
	return &Driver{}
}

// Controllers returns the names of the gpiochip devices present in /dev.
func (d *Driver) Controllers() ([]string, error) {
	return gpiocdev.Chips(), nil
}

// OpenController opens /dev/<name>.
func (d *Driver) OpenController(name string) (gpio.Controller, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidController, name)
	}

	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &controller{chip: chip}, nil
}

type controller struct {
	chip *gpiocdev.Chip
}

func (c *controller) Info() gpio.ControllerInfo {
	return gpio.ControllerInfo{
		Name:     c.chip.Name,
		Label:    c.chip.Label,
		NumLines: uint32(c.chip.Lines()),
	}
}

func (c *controller) Line(offset uint32) (gpio.Line, error) {
	if int(offset) >= c.chip.Lines() {
		return nil, fmt.Errorf("offset %d out of range for %s (%d lines)", offset, c.chip.Name, c.chip.Lines())
	}
	return &line{chip: c.chip, offset: int(offset)}, nil
}

// Close releases the chip file descriptor. Lines requested through the chip
// hold their own descriptors and stay valid.
func (c *controller) Close() error {
	return c.chip.Close()
}

type line struct {
	chip   *gpiocdev.Chip
	offset int
}

func (l *line) Info() (gpio.PinInfo, error) {
	info, err := l.chip.LineInfo(l.offset)
	if err != nil {
		return gpio.PinInfo{}, err
	}
	return pinInfo(info), nil
}

func (l *line) Request(dir gpio.Direction, initial int, consumer string) (gpio.Handle, error) {
	var dirOpt gpiocdev.LineReqOption
	switch dir {
	case gpio.DirectionInput:
		dirOpt = gpiocdev.AsInput
	case gpio.DirectionOutput:
		dirOpt = gpiocdev.AsOutput(initial)
	default:
		return nil, fmt.Errorf("unknown direction %d", dir)
	}

	ln, err := l.chip.RequestLine(l.offset, dirOpt, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &handle{line: ln, dir: dir}, nil
}

// handle wraps a requested line. gpiocdev.Line serializes its own calls and
// returns gpiocdev.ErrClosed after Close, so no extra locking is needed.
type handle struct {
	line *gpiocdev.Line
	dir  gpio.Direction
}

func (h *handle) Value() (int, error) {
	if h.dir != gpio.DirectionInput {
		return 0, gpio.ErrWrongDirection
	}
	return h.line.Value()
}

func (h *handle) SetValue(value int) error {
	if h.dir != gpio.DirectionOutput {
		return gpio.ErrWrongDirection
	}
	return h.line.SetValue(value)
}

func (h *handle) Close() error {
	return h.line.Close()
}

// pinInfo maps the kernel line info. The v1 uAPI reports every requested
// line as kernel-owned, so IsKernel follows Used.
func pinInfo(info gpiocdev.LineInfo) gpio.PinInfo {
	return gpio.PinInfo{
		Name:            gpio.OptionalString(info.Name),
		CurrentlyUsedBy: gpio.OptionalString(info.Consumer),
		IsUsed:          info.Used,
		IsKernel:        info.Used,
		IsOutput:        info.Config.Direction == gpiocdev.LineDirectionOutput,
		IsActiveLow:     info.Config.ActiveLow,
		Offset:          uint32(info.Offset),
	}
}
