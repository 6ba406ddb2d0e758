package gpio

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// PinID identifies one line on one controller.
//
// It is a comparable value type, so it can be used directly as a map key.
// Two PinIDs are equal when both fields are equal.
type PinID struct {
	Controller string `json:"controller"`
	Offset     uint32 `json:"offset"`
}

// NewPinID returns the PinID for a controller and offset.
// No hardware lookup happens here; an unknown controller or offset is only
// detected when the line is opened.
func NewPinID(controller string, offset uint32) PinID {
	return PinID{Controller: controller, Offset: offset}
}

// ParsePinID parses the "controller:offset" form produced by String.
func ParsePinID(s string) (PinID, error) {
	idx := strings.LastIndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return PinID{}, fmt.Errorf("%w: %q", ErrInvalidPin, s)
	}

	offset, err := strconv.ParseUint(s[idx+1:], 10, 32)
	if err != nil {
		return PinID{}, fmt.Errorf("%w: %q: %w", ErrInvalidPin, s, err)
	}

	return PinID{Controller: s[:idx], Offset: uint32(offset)}, nil
}

// String renders the pin as "controller:offset".
func (p PinID) String() string {
	return p.Controller + ":" + strconv.FormatUint(uint64(p.Offset), 10)
}

// Compare orders pins by controller name, then by offset.
// It returns -1, 0 or +1.
func (p PinID) Compare(other PinID) int {
	if c := cmp.Compare(p.Controller, other.Controller); c != 0 {
		return c
	}
	return cmp.Compare(p.Offset, other.Offset)
}
