package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported GPIO drivers.
const (
	DriverCdev = "cdev"
	DriverSim  = "sim"
)

// Config is the root configuration structure for http-gpio.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Panel    PanelConfig      `yaml:"panel"`
}

// PanelConfig controls the pin dashboard served under /ui/.
type PanelConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir serves the dashboard from disk instead of the embedded copy.
	Dir string `yaml:"dir"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list means same-origin only.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GPIOConfig selects and configures the GPIO driver.
type GPIOConfig struct {
	// Driver is "cdev" (Linux character device) or "sim" (in-memory board).
	Driver string `yaml:"driver"`

	// Consumer is the label the kernel shows for lines held by this process.
	Consumer string `yaml:"consumer"`

	// MaxScheduleMS caps the total length of a blink schedule. 0 disables the cap.
	MaxScheduleMS int `yaml:"max_schedule_ms"`

	// Sim describes the simulated board used when Driver is "sim".
	Sim []SimChipConfig `yaml:"sim"`
}

// SimChipConfig describes one simulated controller.
type SimChipConfig struct {
	Name      string            `yaml:"name"`
	Label     string            `yaml:"label"`
	Lines     uint32            `yaml:"lines"`
	LineNames map[uint32]string `yaml:"line_names"`
}

// DatabaseConfig contains SQLite settings for the audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
//
// When Required is true, POST routes need a bearer token signed with Secret.
type JWTConfig struct {
	Required       bool   `yaml:"required"`
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// RateLimitConfig contains per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern HTTPGPIO_SECTION_KEY, for
// example HTTPGPIO_API_PORT or HTTPGPIO_GPIO_DRIVER. LOG sets the log
// level when HTTPGPIO_LOG_LEVEL is not set.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file yields the
// defaults (with environment overrides) instead of an error. The service
// then runs from command-line flags alone.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3030,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
			Panel: PanelConfig{
				Enabled: true,
			},
		},
		GPIO: GPIOConfig{
			Driver:        DriverCdev,
			Consumer:      "http-gpio",
			MaxScheduleMS: 60000,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/http-gpio.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "http-gpio",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "http-gpio",
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 600,
				Burst:             20,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("HTTPGPIO_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HTTPGPIO_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HTTPGPIO_ALLOWED_ORIGINS"); v != "" {
		cfg.API.CORS.AllowedOrigins = splitList(v)
	}

	// GPIO
	if v := os.Getenv("HTTPGPIO_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}
	if v := os.Getenv("HTTPGPIO_GPIO_CONSUMER"); v != "" {
		cfg.GPIO.Consumer = v
	}

	// Logging
	if v := os.Getenv("HTTPGPIO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	} else if v := os.Getenv("LOG"); v != "" {
		cfg.Logging.Level = v
	}

	// Database
	if v := os.Getenv("HTTPGPIO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HTTPGPIO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HTTPGPIO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HTTPGPIO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HTTPGPIO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("HTTPGPIO_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}
	if c.API.Timeouts.Write > 0 && c.GPIO.MaxScheduleMS > 0 &&
		c.GetWriteTimeout() <= c.GetMaxSchedule() {
		errs = append(errs, "api.timeouts.write must be longer than gpio.max_schedule_ms so blink responses are not cut off")
	}

	// GPIO
	switch c.GPIO.Driver {
	case DriverCdev:
	case DriverSim:
		errs = append(errs, c.validateSimChips()...)
	default:
		errs = append(errs, fmt.Sprintf("gpio.driver must be %q or %q", DriverCdev, DriverSim))
	}
	if c.GPIO.Consumer == "" {
		errs = append(errs, "gpio.consumer is required")
	}
	if c.GPIO.MaxScheduleMS < 0 {
		errs = append(errs, "gpio.max_schedule_ms must not be negative")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the audit trail is enabled")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when MQTT is enabled")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when MQTT is enabled")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when InfluxDB is enabled")
	}

	// Security. Anyone who can reach a mutating route can drive hardware,
	// so a configured secret must be strong enough not to be guessed.
	const minJWTSecretLength = 32
	if c.Security.JWT.Required && c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required when security.jwt.required is set (set HTTPGPIO_JWT_SECRET)")
	} else if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive when rate limiting is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateSimChips() []string {
	if len(c.GPIO.Sim) == 0 {
		return []string{"gpio.sim must describe at least one chip when gpio.driver is \"sim\""}
	}

	var errs []string
	seen := make(map[string]bool, len(c.GPIO.Sim))
	for i, chip := range c.GPIO.Sim {
		switch {
		case chip.Name == "":
			errs = append(errs, fmt.Sprintf("gpio.sim[%d].name is required", i))
		case seen[chip.Name]:
			errs = append(errs, fmt.Sprintf("gpio.sim[%d].name %q is duplicated", i, chip.Name))
		}
		seen[chip.Name] = true
		if chip.Lines == 0 {
			errs = append(errs, fmt.Sprintf("gpio.sim[%d].lines must be positive", i))
		}
	}
	return errs
}

// SetBind overrides the API host and port from a "host:port" address, as
// given to the -bind flag.
func (c *Config) SetBind(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parsing bind address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("parsing bind address %q: invalid port", addr)
	}
	c.API.Host = host
	c.API.Port = port
	return nil
}

// Address returns the API listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetMaxSchedule returns the blink schedule cap as a Duration.
func (c *Config) GetMaxSchedule() time.Duration {
	return time.Duration(c.GPIO.MaxScheduleMS) * time.Millisecond
}
