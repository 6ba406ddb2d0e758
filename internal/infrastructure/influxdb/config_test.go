package influxdb

import "github.com/nerrad567/http-gpio/internal/infrastructure/config"

// testConfig matches the local development InfluxDB.
func testConfig(enabled bool) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       enabled,
		URL:           "http://127.0.0.1:8086",
		Token:         "http-gpio-dev-token",
		Org:           "http-gpio",
		Bucket:        "gpio",
		BatchSize:     100,
		FlushInterval: 1,
	}
}
