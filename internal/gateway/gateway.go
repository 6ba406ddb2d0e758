package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

const (
	// DefaultMaxSchedule bounds the total length of a blink schedule.
	DefaultMaxSchedule = 60 * time.Second

	// MaxScheduleSteps bounds the number of toggles in one blink, whatever
	// the total length.
	MaxScheduleSteps = 4096
)

// Logger defines the logging interface used by the gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gateway implements the six GPIO operations on top of a cache and an
// inventory. It is safe for concurrent use.
type Gateway struct {
	cache       *gpio.Cache
	inventory   *gpio.Inventory
	maxSchedule time.Duration
	logger      Logger

	mu        sync.RWMutex
	observers []Observer
}

// New creates a gateway.
func New(cache *gpio.Cache, inventory *gpio.Inventory) *Gateway {
	return &Gateway{
		cache:       cache,
		inventory:   inventory,
		maxSchedule: DefaultMaxSchedule,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// SetMaxSchedule sets the longest accepted blink schedule. Zero disables
// the limit.
func (g *Gateway) SetMaxSchedule(d time.Duration) {
	g.maxSchedule = d
}

// AddObserver registers an observer for pin operations.
func (g *Gateway) AddObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// ObserverCount returns the number of registered observers.
func (g *Gateway) ObserverCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.observers)
}

// ListControllers describes every controller, ordered by name.
func (g *Gateway) ListControllers(ctx context.Context) ([]gpio.ControllerInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.inventory.ListControllers()
}

// ListPins describes every line of a controller, ordered by offset.
func (g *Gateway) ListPins(ctx context.Context, controller string) ([]gpio.PinInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.inventory.ListPins(controller)
}

// DescribePin returns the current info for one line.
func (g *Gateway) DescribePin(ctx context.Context, pin gpio.PinID) (gpio.PinInfo, error) {
	if err := ctx.Err(); err != nil {
		return gpio.PinInfo{}, err
	}
	return g.inventory.DescribePin(pin)
}

// ReadPin returns the logic value of a pin.
func (g *Gateway) ReadPin(ctx context.Context, pin gpio.PinID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	value, err := g.cache.Read(pin)
	g.notify(ctx, Event{
		Pin:       pin,
		Operation: OperationRead,
		Value:     value,
		Duration:  time.Since(start),
		Err:       err,
	})
	return value, err
}

// WritePin drives a pin to 0 or 1.
func (g *Gateway) WritePin(ctx context.Context, pin gpio.PinID, value int) error {
	if value != 0 && value != 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidValue, value)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := g.cache.Write(pin, value)
	g.notify(ctx, Event{
		Pin:       pin,
		Operation: OperationWrite,
		Value:     value,
		Duration:  time.Since(start),
		Err:       err,
	})
	return err
}

// BlinkPin runs a toggle schedule given in milliseconds and returns the
// final value. Once started, the schedule is not interrupted by ctx.
func (g *Gateway) BlinkPin(ctx context.Context, pin gpio.PinID, scheduleMS []uint32) (int, error) {
	durations, err := g.validateSchedule(scheduleMS)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	final, err := g.cache.RunSchedule(pin, durations)
	g.notify(ctx, Event{
		Pin:       pin,
		Operation: OperationBlink,
		Value:     final,
		Schedule:  scheduleMS,
		Duration:  time.Since(start),
		Err:       err,
	})
	return final, err
}

// validateSchedule converts a millisecond schedule, rejecting zero steps,
// more than MaxScheduleSteps steps, and a running total above the cap. The
// total is checked after every step so it cannot wrap before the check.
func (g *Gateway) validateSchedule(scheduleMS []uint32) ([]time.Duration, error) {
	if len(scheduleMS) > MaxScheduleSteps {
		return nil, fmt.Errorf("%w: %d steps exceeds maximum %d", ErrInvalidSchedule, len(scheduleMS), MaxScheduleSteps)
	}

	durations := make([]time.Duration, len(scheduleMS))
	var total time.Duration
	for i, ms := range scheduleMS {
		if ms == 0 {
			return nil, fmt.Errorf("%w: step %d has zero duration", ErrInvalidSchedule, i)
		}
		d := time.Duration(ms) * time.Millisecond
		total += d
		if g.maxSchedule > 0 && total > g.maxSchedule {
			return nil, fmt.Errorf("%w: total exceeds maximum %v at step %d", ErrInvalidSchedule, g.maxSchedule, i)
		}
		durations[i] = d
	}
	return durations, nil
}

// CacheStats exposes the cache counters.
func (g *Gateway) CacheStats() gpio.CacheStats {
	return g.cache.Stats()
}

// CachedPins lists the pins currently holding an open handle.
func (g *Gateway) CachedPins() []gpio.Entry {
	return g.cache.Entries()
}

func (g *Gateway) notify(ctx context.Context, e Event) {
	e.Source = SourceFromContext(ctx)
	e.Timestamp = time.Now().UTC()

	if e.Err != nil {
		g.logger.Error("pin operation failed",
			"pin", e.Pin.String(),
			"operation", string(e.Operation),
			"source", string(e.Source),
			"error", e.Err,
		)
	} else {
		g.logger.Debug("pin operation",
			"pin", e.Pin.String(),
			"operation", string(e.Operation),
			"value", e.Value,
			"source", string(e.Source),
			"duration", e.Duration,
		)
	}

	g.mu.RLock()
	observers := g.observers
	g.mu.RUnlock()

	for _, o := range observers {
		g.safeObserve(o, e)
	}
}

// safeObserve keeps a panicking observer from taking down the caller.
func (g *Gateway) safeObserve(o Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic in pin operation observer",
				"pin", e.Pin.String(),
				"operation", string(e.Operation),
				"panic", r,
			)
		}
	}()
	o.ObservePinOperation(e)
}
