package bridge

import "errors"

var (
	// ErrInvalidPayload is returned for a command payload that does not
	// decode into the command's value type.
	ErrInvalidPayload = errors.New("bridge: invalid command payload")

	// ErrStopped is returned for commands arriving after Stop.
	ErrStopped = errors.New("bridge: stopped")
)
