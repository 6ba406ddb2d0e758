package simdriver

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

func testBoard() *Driver {
	return New(
		Chip{Name: "gpiochip1", Label: "expander", Lines: 4},
		Chip{Name: "gpiochip0", Label: "pinctrl-sim", Lines: 8, LineNames: map[uint32]string{4: "LED", 5: "BUTTON", 99: "ignored"}},
	)
}

func TestDriver_Controllers(t *testing.T) {
	names, err := testBoard().Controllers()
	if err != nil {
		t.Fatalf("Controllers: %v", err)
	}
	if len(names) != 2 || names[0] != "gpiochip0" || names[1] != "gpiochip1" {
		t.Errorf("Controllers() = %v, want [gpiochip0 gpiochip1]", names)
	}
}

func TestDriver_OpenController(t *testing.T) {
	d := testBoard()

	ctrl, err := d.OpenController("gpiochip0")
	if err != nil {
		t.Fatalf("OpenController: %v", err)
	}
	want := gpio.ControllerInfo{Name: "gpiochip0", Label: "pinctrl-sim", NumLines: 8}
	if got := ctrl.Info(); got != want {
		t.Errorf("Info() = %+v, want %+v", got, want)
	}

	if _, err := ctrl.Line(8); !errors.Is(err, ErrOffset) {
		t.Errorf("Line(8) error = %v, want ErrOffset", err)
	}
	if _, err := d.OpenController("gpiochip7"); !errors.Is(err, ErrNoController) {
		t.Errorf("OpenController(gpiochip7) error = %v, want ErrNoController", err)
	}
}

func TestLine_RequestIsExclusive(t *testing.T) {
	d := testBoard()
	ctrl, _ := d.OpenController("gpiochip0")
	ln, _ := ctrl.Line(4)

	h, err := ln.Request(gpio.DirectionOutput, 1, "first")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := ln.Request(gpio.DirectionInput, 0, "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Request error = %v, want ErrBusy", err)
	}

	info, err := ln.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.IsUsed || !info.IsOutput || info.CurrentlyUsedBy == nil || *info.CurrentlyUsedBy != "first" {
		t.Errorf("Info() = %+v, want used output held by first", info)
	}
	if info.Name == nil || *info.Name != "LED" {
		t.Errorf("Name = %v, want LED", info.Name)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if _, err := ln.Request(gpio.DirectionInput, 0, "second"); err != nil {
		t.Errorf("Request after Close: %v", err)
	}
}

func TestHandle_Direction(t *testing.T) {
	d := testBoard()
	pin := gpio.NewPinID("gpiochip0", 5)
	ctrl, _ := d.OpenController(pin.Controller)
	ln, _ := ctrl.Line(pin.Offset)

	if err := d.SetPull(pin, 1); err != nil {
		t.Fatalf("SetPull: %v", err)
	}

	in, err := ln.Request(gpio.DirectionInput, 0, "test")
	if err != nil {
		t.Fatalf("Request input: %v", err)
	}
	if v, err := in.Value(); err != nil || v != 1 {
		t.Errorf("Value() = %d, %v; want 1, nil", v, err)
	}
	if err := in.SetValue(0); !errors.Is(err, gpio.ErrWrongDirection) {
		t.Errorf("SetValue on input = %v, want ErrWrongDirection", err)
	}
	_ = in.Close()

	out, err := ln.Request(gpio.DirectionOutput, 0, "test")
	if err != nil {
		t.Fatalf("Request output: %v", err)
	}
	if _, err := out.Value(); !errors.Is(err, gpio.ErrWrongDirection) {
		t.Errorf("Value on output = %v, want ErrWrongDirection", err)
	}
	if err := out.SetValue(1); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if level, _ := d.Level(pin); level != 1 {
		t.Errorf("Level = %d, want 1", level)
	}
	_ = out.Close()

	if _, err := out.Value(); !errors.Is(err, ErrClosed) {
		t.Errorf("Value after Close = %v, want ErrClosed", err)
	}
}

func TestDriver_WithCache(t *testing.T) {
	d := testBoard()
	cache := gpio.NewCache(d, "")
	defer cache.Close()
	pin := gpio.NewPinID("gpiochip0", 4)

	if _, err := cache.Read(pin); err != nil {
		t.Fatalf("Read: %v", err)
	}
	// The input handle is evicted and closed before the output request,
	// so the exclusive line never reports busy.
	if err := cache.Write(pin, 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if level, _ := d.Level(pin); level != 1 {
		t.Errorf("Level after Write = %d, want 1", level)
	}

	final, err := cache.RunSchedule(pin, []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond})
	if err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}
	if final != 1 {
		t.Errorf("final = %d, want 1", final)
	}
	if level, _ := d.Level(pin); level != 1 {
		t.Errorf("Level after schedule = %d, want 1", level)
	}

	inv := gpio.NewInventory(d)
	info, err := inv.DescribePin(pin)
	if err != nil {
		t.Fatalf("DescribePin: %v", err)
	}
	if info.CurrentlyUsedBy == nil || *info.CurrentlyUsedBy != gpio.DefaultConsumer {
		t.Errorf("CurrentlyUsedBy = %v, want %s", info.CurrentlyUsedBy, gpio.DefaultConsumer)
	}
}
