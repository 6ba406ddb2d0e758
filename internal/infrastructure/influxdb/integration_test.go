//go:build integration

package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

// Integration tests need InfluxDB 2 at 127.0.0.1:8086 with the token, org
// and bucket from testConfig.
//
//   go test -tags=integration -count=1 ./internal/infrastructure/influxdb/...

func TestIntegration_ConnectWriteFlush(t *testing.T) {
	client, err := Connect(testConfig(true))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	client.WritePinOperation(gpio.NewPinID("gpiochip0", 17), "blink", 1, 600*time.Millisecond, nil)
	client.WritePinOperation(gpio.NewPinID("gpiochip0", 17), "read", 0, time.Millisecond, errors.New("busy"))
	client.Flush()

	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestIntegration_ConnectUnreachable(t *testing.T) {
	cfg := testConfig(true)
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
