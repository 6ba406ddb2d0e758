// Package api implements the HTTP front end of the GPIO gateway.
//
// Routes:
//
//	GET  /gpio                              controllers, ordered by name
//	GET  /gpio/{controller}                 lines of one controller
//	GET  /gpio/{controller}/{offset}        one line
//	GET  /gpio/{controller}/{offset}/value  read → 0|1
//	POST /gpio/{controller}/{offset}/value  write 0|1 → null
//	POST /gpio/{controller}/{offset}/blink  [ms, ...] → final value
//	GET  /audit                             pin operation trail
//	GET  /health, /metrics
//	GET  /ws                                pin event stream
//
// Errors use the JSON envelope {status, code, message}. Driver failures are
// 500 with code "gpio_error" and the kernel's message; malformed input is
// 400.
//
// # Security
//
// CORS headers are only sent for the configured origins. With
// security.jwt.required, POST routes need a bearer token with the
// pin:operate permission and /audit needs audit:read; WebSocket clients
// trade their token for a single-use ticket at POST /ws/ticket.
// A per-client token bucket (golang.org/x/time/rate) limits request rates.
//
// The server works without the audit database or MQTT; the matching
// sections of /health and /metrics are simply absent.
package api
