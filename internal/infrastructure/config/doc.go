// Package config handles loading and validating http-gpio configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with HTTPGPIO_* environment variables (and LOG for the level)
//   - Validation of required fields
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token, JWT secret) should be set
// via environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.LoadOrDefault("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.SetBind("127.0.0.1:3030"); err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Address())
package config
