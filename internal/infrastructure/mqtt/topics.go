package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "http-gpio"

// Command kinds accepted on command topics.
const (
	CommandValue = "value"
	CommandBlink = "blink"
)

// Topics builds the service's MQTT topics under a common prefix.
//
//	topics := mqtt.NewTopics("http-gpio")
//	topics.Command(pin, mqtt.CommandValue)
//	// Returns: "http-gpio/command/gpiochip0/17/value"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders under prefix. Leading and trailing
// slashes are dropped; an empty prefix selects DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Command returns the topic a pin command of the given kind arrives on.
//
// Example: http-gpio/command/gpiochip0/17/blink
func (t Topics) Command(pin gpio.PinID, kind string) string {
	return fmt.Sprintf("%s/command/%s/%d/%s", t.prefix, pin.Controller, pin.Offset, kind)
}

// State returns the retained state topic of a pin.
//
// Example: http-gpio/state/gpiochip0/17
func (t Topics) State(pin gpio.PinID) string {
	return fmt.Sprintf("%s/state/%s/%d", t.prefix, pin.Controller, pin.Offset)
}

// SystemStatus returns the online/offline status topic, also used for
// the Last Will and Testament.
//
// Example: http-gpio/system/status
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: http-gpio/command/+/+/+
func (t Topics) AllCommands() string {
	return t.prefix + "/command/+/+/+"
}

// AllStates returns a pattern matching every state topic.
//
// Pattern: http-gpio/state/+/+
func (t Topics) AllStates() string {
	return t.prefix + "/state/+/+"
}

// ParseCommand splits a command topic into its pin and kind.
func (t Topics) ParseCommand(topic string) (gpio.PinID, string, error) {
	rest, ok := strings.CutPrefix(topic, t.prefix+"/command/")
	if !ok {
		return gpio.PinID{}, "", fmt.Errorf("%w: %q is not a command topic", ErrInvalidTopic, topic)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" {
		return gpio.PinID{}, "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	pin, err := gpio.ParsePinID(parts[0] + ":" + parts[1])
	if err != nil {
		return gpio.PinID{}, "", fmt.Errorf("%w: bad offset in %q", ErrInvalidTopic, topic)
	}
	switch parts[2] {
	case CommandValue, CommandBlink:
	default:
		return gpio.PinID{}, "", fmt.Errorf("%w: unknown command %q", ErrInvalidTopic, parts[2])
	}

	return pin, parts[2], nil
}
