// Package main is the entry point for the http-gpio service.
//
// http-gpio exposes the GPIO lines of a Linux host over HTTP, with an
// optional MQTT front end, an SQLite audit trail and InfluxDB telemetry.
// It is a long-running process: it serves until SIGINT or SIGTERM, then
// shuts down gracefully.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/http-gpio/internal/api"
	"github.com/nerrad567/http-gpio/internal/audit"
	"github.com/nerrad567/http-gpio/internal/auth"
	"github.com/nerrad567/http-gpio/internal/bridge"
	"github.com/nerrad567/http-gpio/internal/gateway"
	"github.com/nerrad567/http-gpio/internal/gpio"
	"github.com/nerrad567/http-gpio/internal/gpio/cdev"
	"github.com/nerrad567/http-gpio/internal/gpio/simdriver"
	"github.com/nerrad567/http-gpio/internal/infrastructure/config"
	"github.com/nerrad567/http-gpio/internal/infrastructure/database"
	"github.com/nerrad567/http-gpio/internal/infrastructure/influxdb"
	"github.com/nerrad567/http-gpio/internal/infrastructure/logging"
	"github.com/nerrad567/http-gpio/internal/infrastructure/mqtt"
	"github.com/nerrad567/http-gpio/migrations"
)

// Version information (set at build time via ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath   string
	logLevel     string
	bind         string
	allowOrigins stringList
	issueToken   string
	tokenSubject string
	showVersion  bool
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("http-gpio", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", getConfigPath(), "path to the YAML configuration file")
	fs.StringVar(&opts.logLevel, "log", "", "log level (debug, info, warn, error)")
	fs.StringVar(&opts.bind, "bind", "", "listen address as host:port")
	fs.Var(&opts.allowOrigins, "allow-origin", "CORS origin to allow (repeatable)")
	fs.StringVar(&opts.issueToken, "issue-token", "", "print an API token for the given role and exit")
	fs.StringVar(&opts.tokenSubject, "token-subject", "cli", "subject of the token printed by -issue-token")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

// loadConfig reads the configuration file and applies command-line
// overrides on top of it.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.bind != "" {
		if err := cfg.SetBind(opts.bind); err != nil {
			return nil, err
		}
	}
	if len(opts.allowOrigins) > 0 {
		cfg.API.CORS.AllowedOrigins = opts.allowOrigins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// run is the main application logic, separated from main() for testability.
// It returns when ctx is cancelled and everything has been shut down.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "http-gpio %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.issueToken != "" {
		return issueToken(stdout, cfg.Security.JWT, opts.tokenSubject, auth.Role(opts.issueToken))
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting http-gpio",
		"version", version,
		"commit", commit,
		"build_date", date,
		"driver", cfg.GPIO.Driver,
	)

	driver, err := newDriver(cfg.GPIO)
	if err != nil {
		return err
	}

	cache := gpio.NewCache(driver, cfg.GPIO.Consumer)
	cache.SetLogger(log.Component("gpio"))
	defer func() {
		if err := cache.Close(); err != nil {
			log.Error("error releasing GPIO lines", "error", err)
		}
	}()

	inventory := gpio.NewInventory(driver)
	inventory.SetLogger(log.Component("gpio"))

	gw := gateway.New(cache, inventory)
	gw.SetLogger(log.Component("gateway"))
	gw.SetMaxSchedule(cfg.GetMaxSchedule())

	// Audit trail (optional)
	var (
		db        *database.DB
		auditRepo audit.Repository
	)
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		repo := audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(repo)
		recorder.SetLogger(log.Component("audit"))
		gw.AddObserver(recorder)
		auditRepo = repo
	} else {
		log.Info("audit trail disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to influxdb: %w", err)
		}
		defer func() {
			log.Info("closing influxdb connection")
			if err := influxClient.Close(); err != nil {
				log.Error("error closing influxdb", "error", err)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("influxdb write error", "error", err)
		})
		gw.AddObserver(gateway.ObserverFunc(func(e gateway.Event) {
			influxClient.WritePinOperation(e.Pin, string(e.Operation), e.Value, e.Duration, e.Err)
		}))
		log.Info("influxdb connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("influxdb disabled")
	}

	// MQTT front end (optional)
	var mqttStatus api.MQTTStatus
	if cfg.MQTT.Enabled {
		mqttClient, mqttBridge, err := startMQTT(cfg.MQTT, gw, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing MQTT connection")
			if err := mqttClient.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		}()
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()
		mqttStatus = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Gateway:  gw,
		Audit:    auditRepo,
		DB:       db,
		MQTT:     mqttStatus,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Error("error stopping API server", "error", err)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", server.Addr(),
		"observers", gw.ObserverCount(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server (finishes in-flight
	// blinks), MQTT bridge, MQTT, InfluxDB, database, GPIO lines.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HTTPGPIO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HTTPGPIO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newDriver builds the GPIO driver selected in the configuration.
func newDriver(cfg config.GPIOConfig) (gpio.Driver, error) {
	switch cfg.Driver {
	case config.DriverCdev:
		return cdev.New(), nil
	case config.DriverSim:
		chips := make([]simdriver.Chip, 0, len(cfg.Sim))
		for _, c := range cfg.Sim {
			chips = append(chips, simdriver.Chip{
				Name:      c.Name,
				Label:     c.Label,
				Lines:     c.Lines,
				LineNames: c.LineNames,
			})
		}
		return simdriver.New(chips...), nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", cfg.Driver)
	}
}

// openDatabase opens the audit database and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// startMQTT connects to the broker and starts the command bridge.
func startMQTT(cfg config.MQTTConfig, gw *gateway.Gateway, log *logging.Logger) (*mqtt.Client, *bridge.Bridge, error) {
	mqttLog := log.Component("mqtt")

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(mqttLog)
	client.SetOnConnect(func() {
		mqttLog.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"prefix", client.Topics().Prefix(),
	)

	b, err := startBridge(client, gw, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("MQTT bridge ready", "subscriptions", client.SubscriptionCount())
	return client, b, nil
}

// startBridge subscribes the command bridge and, once that succeeds,
// registers it as a gateway observer so HTTP operations publish state too.
// A bridge that failed to start is stopped and never observes the gateway.
func startBridge(broker bridge.Broker, gw *gateway.Gateway, log *logging.Logger) (*bridge.Bridge, error) {
	b, err := bridge.NewBridge(bridge.Options{
		Broker:  broker,
		Gateway: gw,
		Logger:  log.Component("bridge"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}

	if err := b.Start(); err != nil {
		b.Stop()
		return nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	gw.AddObserver(b)
	return b, nil
}

// issueToken prints a signed access token for role.
func issueToken(w io.Writer, cfg config.JWTConfig, subject string, role auth.Role) error {
	if cfg.Secret == "" {
		return errors.New("issuing token: security.jwt.secret is not set")
	}
	if !auth.IsValidRole(role) {
		return fmt.Errorf("issuing token: %w: %q", auth.ErrInvalidRole, role)
	}
	token, err := auth.GenerateAccessToken(subject, role, cfg.Secret, time.Duration(cfg.AccessTokenTTL)*time.Minute)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
