// Package logging provides structured logging for http-gpio.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// The level can also be set with the LOG environment variable or the -log
// flag.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	cache.SetLogger(logger.Component("gpio"))
//	logger.Info("listening", "address", addr)
//
// Never log the JWT secret, the InfluxDB token or MQTT passwords.
package logging
