//go:build !linux

package cdev

import "github.com/nerrad567/http-gpio/internal/gpio"

// Driver is unavailable outside Linux.
type Driver struct{}

// New returns a driver that fails every call with ErrUnsupported.
func New() *Driver {
	return &Driver{}
}

// Controllers always fails with ErrUnsupported.
func (d *Driver) Controllers() ([]string, error) {
	return nil, ErrUnsupported
}

// OpenController always fails with ErrUnsupported.
func (d *Driver) OpenController(string) (gpio.Controller, error) {
	return nil, ErrUnsupported
}
