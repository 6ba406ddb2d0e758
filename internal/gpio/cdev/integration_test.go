//go:build integration && linux

package cdev

import (
	"testing"
	"time"

	"github.com/warthog618/go-gpiosim"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

// These tests need the gpio-sim kernel module and root (configfs).
// Run with: go test -tags integration ./internal/gpio/cdev/...

func newSimpleton(t *testing.T, lines int) *gpiosim.Simpleton {
	t.Helper()
	s, err := gpiosim.NewSimpleton(lines)
	if err != nil {
		t.Skipf("gpio-sim unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIntegration_CacheOverSimulator(t *testing.T) {
	s := newSimpleton(t, 8)
	cache := gpio.NewCache(New(), gpio.DefaultConsumer)
	t.Cleanup(func() { _ = cache.Close() })

	pin := gpio.NewPinID(s.ChipName(), 3)

	if err := s.SetPull(3, 1); err != nil {
		t.Fatalf("SetPull: %v", err)
	}
	got, err := cache.Read(pin)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 1 {
		t.Errorf("Read = %d, want 1 (pulled up)", got)
	}

	// Cached as input; the write must reopen as output.
	if err := cache.Write(pin, 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	level, err := s.Level(3)
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if level != 1 {
		t.Errorf("Level = %d, want 1", level)
	}

	final, err := cache.RunSchedule(pin, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}
	if final != 0 {
		t.Errorf("final = %d, want 0", final)
	}
	if level, _ := s.Level(3); level != 0 {
		t.Errorf("Level after schedule = %d, want 0", level)
	}
}

func TestIntegration_Inventory(t *testing.T) {
	s := newSimpleton(t, 4)
	inv := gpio.NewInventory(New())

	controllers, err := inv.ListControllers()
	if err != nil {
		t.Fatalf("ListControllers: %v", err)
	}
	found := false
	for _, c := range controllers {
		if c.Name == s.ChipName() {
			found = true
			if c.NumLines != 4 {
				t.Errorf("NumLines = %d, want 4", c.NumLines)
			}
		}
	}
	if !found {
		t.Fatalf("simulated chip %s not listed in %+v", s.ChipName(), controllers)
	}

	cache := gpio.NewCache(New(), "http-gpio-test")
	t.Cleanup(func() { _ = cache.Close() })
	pin := gpio.NewPinID(s.ChipName(), 2)
	if err := cache.Write(pin, 1); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := inv.DescribePin(pin)
	if err != nil {
		t.Fatalf("DescribePin: %v", err)
	}
	if !info.IsUsed || !info.IsOutput {
		t.Errorf("info = %+v, want used output", info)
	}
	if info.CurrentlyUsedBy == nil || *info.CurrentlyUsedBy != "http-gpio-test" {
		t.Errorf("CurrentlyUsedBy = %v, want http-gpio-test", info.CurrentlyUsedBy)
	}

	pins, err := inv.ListPins(s.ChipName())
	if err != nil {
		t.Fatalf("ListPins: %v", err)
	}
	if len(pins) != 4 {
		t.Errorf("len(pins) = %d, want 4", len(pins))
	}
}
