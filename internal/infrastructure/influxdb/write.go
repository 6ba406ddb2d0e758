package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

// MeasurementPinOperations is the measurement pin operations are written to.
const MeasurementPinOperations = "gpio_operations"

// Status tag values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WritePinOperation records one finished pin operation.
//
// Tags: controller, offset, operation, status. Fields: duration_ms, and
// value for successful operations. The write is non-blocking.
func (c *Client) WritePinOperation(pin gpio.PinID, operation string, value int, duration time.Duration, opErr error) {
	c.writePoint(pinOperationPoint(pin, operation, value, duration, opErr, time.Now()))
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(p)
}

func pinOperationPoint(pin gpio.PinID, operation string, value int, duration time.Duration, opErr error, ts time.Time) *write.Point {
	status := StatusOK
	fields := map[string]any{
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}
	if opErr != nil {
		status = StatusError
	} else {
		fields["value"] = value
	}

	return write.NewPoint(
		MeasurementPinOperations,
		map[string]string{
			"controller": pin.Controller,
			"offset":     strconv.FormatUint(uint64(pin.Offset), 10),
			"operation":  operation,
			"status":     status,
		},
		fields,
		ts,
	)
}
