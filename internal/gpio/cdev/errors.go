package cdev

import "errors"

var (
	// ErrUnsupported is returned on platforms without the GPIO character device.
	ErrUnsupported = errors.New("cdev: gpio character device not supported on this platform")

	// ErrInvalidController is returned for controller names that are not a
	// plain device name under /dev.
	ErrInvalidController = errors.New("cdev: invalid controller name")
)
