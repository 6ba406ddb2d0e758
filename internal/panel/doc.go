// Package panel serves the pin dashboard, a single static page embedded
// into the binary.
//
// The page lists controllers and lines through the HTTP API, drives
// outputs with POST /gpio/{controller}/{offset}/value and follows the
// WebSocket pin.changed channel to keep the displayed levels current.
// Mount it with http.StripPrefix under /ui.
package panel
