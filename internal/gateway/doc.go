// Package gateway is the transport-agnostic operation contract of http-gpio.
//
// The HTTP API and the MQTT bridge both call a single Gateway, which
// validates inputs, runs the operation against the shared gpio.Cache or
// gpio.Inventory, and reports every pin operation (read, write, blink) to
// the registered Observers: the audit recorder, the MQTT state publisher,
// InfluxDB telemetry and the WebSocket hub.
//
// Observers run synchronously on the caller's goroutine after the
// operation has finished, so they must not block.
//
//	gw := gateway.New(cache, inventory)
//	gw.SetLogger(log)
//	gw.AddObserver(recorder)
//
//	ctx = gateway.WithSource(ctx, gateway.SourceHTTP)
//	final, err := gw.BlinkPin(ctx, pin, []uint32{100, 50, 200})
package gateway
