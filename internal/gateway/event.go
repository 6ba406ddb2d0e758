package gateway

import (
	"context"
	"time"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

// Operation names a pin operation.
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
	OperationBlink Operation = "blink"
)

// Source names the front end that requested an operation.
type Source string

const (
	SourceHTTP    Source = "http"
	SourceMQTT    Source = "mqtt"
	SourceUnknown Source = "unknown"
)

type sourceKey struct{}

// WithSource tags ctx with the requesting front end.
func WithSource(ctx context.Context, source Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext returns the source set by WithSource, or SourceUnknown.
func SourceFromContext(ctx context.Context) Source {
	if s, ok := ctx.Value(sourceKey{}).(Source); ok {
		return s
	}
	return SourceUnknown
}

// Event describes one finished pin operation.
type Event struct {
	Pin       gpio.PinID
	Operation Operation
	// Value is the value read, the value written, or the final blink value.
	Value int
	// Schedule holds the blink durations in milliseconds.
	Schedule []uint32
	// Duration is how long the operation took.
	Duration  time.Duration
	Source    Source
	Err       error
	Timestamp time.Time
}

// Succeeded reports whether the operation completed without error.
func (e Event) Succeeded() bool {
	return e.Err == nil
}

// Observer receives an Event after every pin operation.
type Observer interface {
	ObservePinOperation(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// ObservePinOperation calls f(e).
func (f ObserverFunc) ObservePinOperation(e Event) {
	f(e)
}

// Message is the wire form of an Event shared by the WebSocket stream and
// the MQTT state topics.
type Message struct {
	Controller string    `json:"controller"`
	Offset     uint32    `json:"offset"`
	Operation  Operation `json:"operation"`
	Value      *int      `json:"value,omitempty"`
	Schedule   []uint32  `json:"schedule,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Source     Source    `json:"source"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Message converts the event to its wire form. Failed operations carry
// the error text and no value.
func (e Event) Message() Message {
	m := Message{
		Controller: e.Pin.Controller,
		Offset:     e.Pin.Offset,
		Operation:  e.Operation,
		Schedule:   e.Schedule,
		DurationMS: e.Duration.Milliseconds(),
		Source:     e.Source,
		Timestamp:  e.Timestamp,
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
	} else {
		v := e.Value
		m.Value = &v
	}
	return m
}
