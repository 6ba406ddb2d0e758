package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing payloads (1MB), matching typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge it.
//
// Parameters:
//   - topic: The exact topic to publish to (e.g., "http-gpio/state/gpiochip0/17")
//   - payload: The message body, at most 1MB; the service sends JSON
//   - qos: 0 (at most once), 1 (at least once) or 2 (exactly once)
//   - retained: Whether the broker keeps this message as the topic's last value
//
// Retained messages:
//   - Pin state topics are retained so a new subscriber sees the current level at once
//   - Command topics are never retained; a replayed command would drive the pin again
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS or ErrNotConnected for bad calls,
//     ErrPublishFailed (wrapped) for oversize payloads, timeouts and broker errors
//
// Example:
//
//	pin := gpio.NewPinID("gpiochip0", 17)
//	err := client.Publish(client.Topics().Command(pin, mqtt.CommandValue), []byte("1"), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate before touching the network
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Bounded wait so a stalled broker cannot block the caller indefinitely
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS.
//
// The MQTT bridge publishes every pin state through it, so the broker always
// holds the last known state of each pin.
//
// Example:
//
//	payload, _ := json.Marshal(event.Message())
//	err := client.PublishRetained(client.Topics().State(event.Pin), payload)
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, c.QoS(), true)
}
