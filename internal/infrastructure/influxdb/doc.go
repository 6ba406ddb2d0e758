// Package influxdb writes pin operation telemetry to InfluxDB v2.
//
// Every finished pin operation becomes one point in the gpio_operations
// measurement, tagged by controller, offset, operation and status, with
// the duration and (for successful operations) the value as fields. Blink
// durations make the schedule timing visible next to read and write
// latencies.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePinOperation(pin, "write", 1, 350*time.Microsecond, nil)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval; asynchronous write errors go to the SetOnError callback.
package influxdb
