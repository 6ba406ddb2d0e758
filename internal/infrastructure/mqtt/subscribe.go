package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages on topic.
//
// Parameters:
//   - topic: A topic filter; the + and # wildcards are allowed
//     (e.g., "http-gpio/command/+/+/+")
//   - qos: Maximum QoS the broker should deliver with (0, 1 or 2)
//   - handler: Called for every matching message
//
// The subscription is recorded before it is sent, and restored by the
// connect handler after every reconnect. Subscribing to the same filter
// again replaces the handler.
//
// Handlers run on paho's delivery goroutines: long work blocks every other
// subscription, so hand it off (the bridge runs each command on its own
// goroutine). A panicking handler is recovered and logged. An error
// returned by a handler is only logged.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrSubscribeFailed (wrapped) for a nil handler, a timeout or a broker refusal
//
// Example:
//
//	err := client.Subscribe(client.Topics().AllCommands(), 1, func(topic string, payload []byte) error {
//		pin, kind, err := client.Topics().ParseCommand(topic)
//		if err != nil {
//			return err
//		}
//		return run(pin, kind, payload)
//	})
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Track first so a reconnect racing with this call still resubscribes
	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.subMu.Lock()
		delete(c.subscriptions, topic)
		c.subMu.Unlock()
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.subMu.Lock()
		delete(c.subscriptions, topic)
		c.subMu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// Unsubscribe removes a subscription and stops it being restored on
// reconnect. Messages already in flight may still reach the old handler.
//
// Returns ErrNotConnected when offline; the subscription is then left in
// place and is restored on the next connect.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of active subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}
