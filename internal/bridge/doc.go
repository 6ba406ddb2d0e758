// Package bridge is the MQTT front end of the gateway.
//
// It subscribes to {prefix}/command/{controller}/{offset}/value (payload 0
// or 1) and .../blink (payload a JSON array of millisecond durations) and
// runs each command through the gateway with source "mqtt". As a gateway
// observer it publishes every successful operation, whatever its source,
// as retained JSON on {prefix}/state/{controller}/{offset}.
//
// Commands run on their own goroutines so a long blink does not hold up
// the broker's delivery of other messages. Failed commands are logged;
// MQTT has no reply channel and the failure reaches WebSocket clients and
// the audit trail through the gateway's own events.
package bridge
