package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/http-gpio/internal/auth"
	"github.com/nerrad567/http-gpio/internal/gateway"
	"github.com/nerrad567/http-gpio/internal/gpio"
	"github.com/nerrad567/http-gpio/internal/gpio/simdriver"
	"github.com/nerrad567/http-gpio/internal/infrastructure/config"
	"github.com/nerrad567/http-gpio/internal/infrastructure/logging"
	"github.com/nerrad567/http-gpio/internal/infrastructure/mqtt"
)

const testSecret = "test-secret-for-development-only-0123456789"

// freeAddr returns a loopback address with a port that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close() //nolint:errcheck // Port probe
	return addr
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o *options)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, o *options) {
				if o.configPath != defaultConfigPath || o.bind != "" || len(o.allowOrigins) != 0 {
					t.Errorf("options = %+v", o)
				}
			},
		},
		{
			name: "repeatable allow-origin",
			args: []string{"-allow-origin", "http://a.example", "-allow-origin", "http://b.example", "-bind", "127.0.0.1:9000", "-log", "debug"},
			check: func(t *testing.T, o *options) {
				if got := o.allowOrigins.String(); got != "http://a.example,http://b.example" {
					t.Errorf("allowOrigins = %q", got)
				}
				if o.bind != "127.0.0.1:9000" || o.logLevel != "debug" {
					t.Errorf("options = %+v", o)
				}
			},
		},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: true},
		{name: "positional argument", args: []string{"extra"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HTTPGPIO_CONFIG", "")
			o, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, o)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("HTTPGPIO_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("HTTPGPIO_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file uses defaults and flags", func(t *testing.T) {
		cfg, err := loadConfig(&options{
			configPath:   filepath.Join(t.TempDir(), "absent.yaml"),
			logLevel:     "debug",
			bind:         "127.0.0.1:4000",
			allowOrigins: stringList{"http://ui.example"},
		})
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.Logging.Level != "debug" || cfg.Address() != "127.0.0.1:4000" {
			t.Errorf("config = %+v", cfg)
		}
		if len(cfg.API.CORS.AllowedOrigins) != 1 || cfg.API.CORS.AllowedOrigins[0] != "http://ui.example" {
			t.Errorf("AllowedOrigins = %v", cfg.API.CORS.AllowedOrigins)
		}
	})

	t.Run("bad bind", func(t *testing.T) {
		_, err := loadConfig(&options{
			configPath: filepath.Join(t.TempDir(), "absent.yaml"),
			bind:       "localhost",
		})
		if err == nil {
			t.Error("loadConfig() should reject a bind address without port")
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		path := writeConfig(t, "gpio:\n  driver: serial\n")
		if _, err := loadConfig(&options{configPath: path}); err == nil {
			t.Error("loadConfig() should reject an unknown driver")
		}
	})
}

func TestNewDriver(t *testing.T) {
	d, err := newDriver(config.GPIOConfig{
		Driver: config.DriverSim,
		Sim:    []config.SimChipConfig{{Name: "gpiochip0", Lines: 4}},
	})
	if err != nil {
		t.Fatalf("newDriver(sim) error = %v", err)
	}
	names, err := d.Controllers()
	if err != nil || len(names) != 1 || names[0] != "gpiochip0" {
		t.Errorf("Controllers() = %v, %v", names, err)
	}

	if _, err := newDriver(config.GPIOConfig{Driver: "serial"}); err == nil {
		t.Error("newDriver() should reject an unknown driver")
	}
}

// stubBroker satisfies bridge.Broker; Subscribe returns subscribeErr.
type stubBroker struct {
	subscribeErr error
	published    chan string
}

func (s *stubBroker) PublishRetained(topic string, _ []byte) error {
	s.published <- topic
	return nil
}

func (s *stubBroker) Subscribe(string, byte, mqtt.MessageHandler) error { return s.subscribeErr }
func (s *stubBroker) Unsubscribe(string) error                          { return nil }
func (s *stubBroker) Topics() mqtt.Topics                               { return mqtt.NewTopics("") }
func (s *stubBroker) QoS() byte                                         { return 1 }

func TestStartBridge(t *testing.T) {
	tests := []struct {
		name          string
		subscribeErr  error
		wantErr       bool
		wantObservers int
	}{
		{name: "subscribed", wantObservers: 1},
		{name: "subscribe fails", subscribeErr: mqtt.ErrSubscribeFailed, wantErr: true, wantObservers: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := simdriver.New(simdriver.Chip{Name: "gpiochip0", Lines: 4})
			cache := gpio.NewCache(board, "")
			t.Cleanup(func() { _ = cache.Close() })
			gw := gateway.New(cache, gpio.NewInventory(board))

			broker := &stubBroker{subscribeErr: tt.subscribeErr, published: make(chan string, 4)}
			b, err := startBridge(broker, gw, logging.Default())
			if (err != nil) != tt.wantErr {
				t.Fatalf("startBridge() error = %v, wantErr %v", err, tt.wantErr)
			}
			if b != nil {
				t.Cleanup(b.Stop)
			}
			if got := gw.ObserverCount(); got != tt.wantObservers {
				t.Errorf("ObserverCount() = %d, want %d", got, tt.wantObservers)
			}

			if err := gw.WritePin(context.Background(), gpio.NewPinID("gpiochip0", 1), 1); err != nil {
				t.Fatalf("WritePin() error = %v", err)
			}
			if tt.wantErr {
				return
			}
			select {
			case topic := <-broker.published:
				if topic != "http-gpio/state/gpiochip0/1" {
					t.Errorf("published to %s", topic)
				}
			case <-time.After(2 * time.Second):
				t.Error("state not published after a successful start")
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-version"}, &out); err != nil {
		t.Fatalf("run(-version) error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "http-gpio "+version) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_IssueToken(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	t.Run("valid role", func(t *testing.T) {
		t.Setenv("HTTPGPIO_JWT_SECRET", testSecret)
		var out bytes.Buffer
		err := run(context.Background(), []string{"-config", missing, "-issue-token", "operator", "-token-subject", "ci"}, &out)
		if err != nil {
			t.Fatalf("run(-issue-token) error = %v", err)
		}
		claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
		if err != nil {
			t.Fatalf("ParseToken() error = %v", err)
		}
		if claims.Subject != "ci" || claims.Role != auth.RoleOperator {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		t.Setenv("HTTPGPIO_JWT_SECRET", testSecret)
		err := run(context.Background(), []string{"-config", missing, "-issue-token", "root"}, &bytes.Buffer{})
		if !errors.Is(err, auth.ErrInvalidRole) {
			t.Errorf("error = %v, want ErrInvalidRole", err)
		}
	})

	t.Run("no secret", func(t *testing.T) {
		t.Setenv("HTTPGPIO_JWT_SECRET", "")
		err := run(context.Background(), []string{"-config", missing, "-issue-token", "viewer"}, &bytes.Buffer{})
		if err == nil {
			t.Error("run(-issue-token) without a secret should fail")
		}
	})
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "api:\n  port: [1, 2]\n")
	if err := run(context.Background(), []string{"-config", path}, &bytes.Buffer{}); err == nil {
		t.Fatal("run() should fail with an unparsable config")
	}
}

func TestRun_StartupAndShutdown(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "audit.db")
	addr := freeAddr(t)

	path := writeConfig(t, fmt.Sprintf(`
gpio:
  driver: sim
  consumer: http-gpio-test
  sim:
    - name: gpiochip0
      label: test-board
      lines: 8
      line_names:
        4: GPIO4
database:
  enabled: true
  path: %q
logging:
  level: error
  format: text
  output: stderr
`, dbPath))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-config", path, "-bind", addr}, &bytes.Buffer{})
	}()

	// Wait for the API to answer.
	url := "http://" + addr + "/health"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url) //nolint:noctx // Test polling
		if err == nil {
			resp.Body.Close() //nolint:errcheck // Test cleanup
			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET /health status = %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server did not start: %v (run: %v)", err, <-done)
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp, err := http.Post("http://"+addr+"/gpio/gpiochip0/4/value", "text/plain", strings.NewReader("1")) //nolint:noctx // Test request
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close() //nolint:errcheck // Test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("audit database not created: %v", err)
	}
}
