// Package cdev implements gpio.Driver on the Linux GPIO character device
// (/dev/gpiochipN) using github.com/warthog618/go-gpiocdev.
//
// Controllers are addressed by their device name, e.g. "gpiochip0", and are
// resolved under /dev. Line handles are bound to the direction they were
// requested with: reading an output handle or writing an input handle
// returns gpio.ErrWrongDirection so the cache reopens the line.
//
// On platforms other than Linux, New returns a driver whose every call fails
// with ErrUnsupported.
package cdev
