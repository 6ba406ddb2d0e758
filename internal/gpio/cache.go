package gpio

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultConsumer is the consumer label attached to every requested line.
const DefaultConsumer = "http-gpio"

// Logger defines the logging interface used by the Cache.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// action is one operation run against a handle.
type action func(h Handle) (int, error)

// Entry is a cached pin and the direction its handle was requested with.
type Entry struct {
	Pin       PinID     `json:"pin"`
	Direction Direction `json:"direction"`
}

// CacheStats are counters exposed on the metrics endpoint.
type CacheStats struct {
	Entries  int    `json:"entries"`
	Opens    uint64 `json:"opens"`
	FastHits uint64 `json:"fast_hits"`
	Reopens  uint64 `json:"reopens"`
	Failures uint64 `json:"failures"`
}

// Cache maps pins to opened line handles and runs actions against them.
//
// All public methods are safe for concurrent use. The map is read under a
// shared lock and only mutated under the exclusive lock; actions (including
// multi-second blink schedules) never run while either lock is held.
type Cache struct {
	driver   Driver
	consumer string
	handles  map[PinID]*sharedHandle
	mu       sync.RWMutex // Protects handles and closed
	closed   bool
	logger   Logger
	sleep    func(time.Duration)

	opens    atomic.Uint64
	fastHits atomic.Uint64
	reopens  atomic.Uint64
	failures atomic.Uint64
}

// NewCache creates an empty cache over driver. Lines are requested with the
// given consumer label, or DefaultConsumer when it is empty.
func NewCache(driver Driver, consumer string) *Cache {
	if consumer == "" {
		consumer = DefaultConsumer
	}
	return &Cache{
		driver:   driver,
		consumer: consumer,
		handles:  make(map[PinID]*sharedHandle),
		logger:   noopLogger{},
		sleep:    time.Sleep,
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// Read returns the logic value of pin.
//
// The action runs against the cached handle first, whatever direction it
// was requested with. If there is none, or the action fails (an output
// handle refuses Value with ErrWrongDirection), the line is reopened once
// as an input and read again. Reading therefore reconfigures a written pin
// as an input.
//
// Parameters:
//   - pin: The line to read; unknown controllers and offsets surface as a
//     *DriverError from the open
//
// Returns:
//   - int: 0 or 1
//   - error: ErrCacheClosed after Close, or a *DriverError (errors.Is
//     ErrDriver) naming the stage that failed on the fresh handle
//
// Example:
//
//	level, err := cache.Read(gpio.NewPinID("gpiochip0", 17))
func (c *Cache) Read(pin PinID) (int, error) {
	return c.doWithHandle(pin, DirectionInput, func(h Handle) (int, error) {
		return h.Value()
	})
}

// Write drives pin to value.
//
// Same retry as Read: the cached handle is tried first and, on failure, the
// line is reopened once as an output. A freshly requested output starts
// low before value is written. Values other than 0 and 1 are the caller's
// concern; the gateway rejects them before they get here.
//
// Returns ErrCacheClosed after Close, or a *DriverError.
func (c *Cache) Write(pin PinID, value int) error {
	_, err := c.doWithHandle(pin, DirectionOutput, func(h Handle) (int, error) {
		return value, h.SetValue(value)
	})
	return err
}

// RunSchedule plays a blink schedule on pin and returns the last value
// written.
//
// Sequence:
//  1. Drive the line low
//  2. For every duration: sleep, then invert the line
//
// For [100ms, 50ms, 200ms] the line goes 0, 1, 0, 1 and the result is 1.
// An empty schedule only drives the line low.
//
// The calling goroutine sleeps between toggles without holding any cache
// lock, so reads and writes of other pins (and of this one) proceed while
// the schedule runs. If the cached handle fails part way, the whole
// schedule is replayed from the start on a fresh output handle. There is
// no cancellation: the schedule runs to completion or fails.
//
// Returns:
//   - int: the final line value (0 or 1)
//   - error: ErrCacheClosed, or a *DriverError from the open or a toggle
func (c *Cache) RunSchedule(pin PinID, durations []time.Duration) (int, error) {
	c.logger.Info("running blink schedule",
		"pin", pin.String(),
		"steps", len(durations),
		"total_ms", TotalDuration(durations).Milliseconds(),
	)
	return c.doWithHandle(pin, DirectionOutput, func(h Handle) (int, error) {
		return playSchedule(h, durations, c.sleep)
	})
}

// doWithHandle runs act against the cached handle for pin and, if that is
// missing or fails, against exactly one freshly opened handle.
func (c *Cache) doWithHandle(pin PinID, dir Direction, act action) (int, error) {
	cached, err := c.lookup(pin)
	if err != nil {
		return 0, err
	}

	if cached != nil {
		result, actErr := act(cached.handle)
		c.releaseRef(pin, cached)
		if actErr == nil {
			c.fastHits.Add(1)
			c.logger.Debug("action succeeded with cached handle", "pin", pin.String())
			return result, nil
		}
		c.reopens.Add(1)
		c.logger.Debug("action failed with cached handle, reopening",
			"pin", pin.String(),
			"cached_direction", cached.direction.String(),
			"wanted_direction", dir.String(),
			"error", actErr,
		)
	} else {
		c.logger.Debug("no cached handle", "pin", pin.String())
	}

	fresh, err := c.reopen(pin, dir)
	if err != nil {
		c.failures.Add(1)
		return 0, err
	}

	c.logger.Debug("performing action with fresh handle", "pin", pin.String())
	result, err := act(fresh.handle)
	c.releaseRef(pin, fresh)
	if err != nil {
		c.failures.Add(1)
		return result, driverError(StageAction, pin, err)
	}
	return result, nil
}

// lookup returns the cached handle for pin with a reference taken for the
// caller, or nil if there is none.
func (c *Cache) lookup(pin PinID) (*sharedHandle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrCacheClosed
	}

	sh, ok := c.handles[pin]
	if !ok {
		return nil, nil
	}
	sh.acquire()
	return sh, nil
}

// reopen evicts any handle cached for pin, opens a new one with dir and
// installs it. The returned handle carries a reference for the caller.
// Opens are serialized by the exclusive lock.
func (c *Cache) reopen(pin PinID, dir Direction) (*sharedHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCacheClosed
	}

	if stale, ok := c.handles[pin]; ok {
		delete(c.handles, pin)
		c.releaseRef(pin, stale)
	}

	h, err := c.open(pin, dir)
	if err != nil {
		return nil, err
	}
	c.opens.Add(1)

	sh := newSharedHandle(h, dir) // the cache's reference
	sh.acquire()                  // the caller's reference
	c.handles[pin] = sh

	c.logger.Debug("saved line handle", "pin", pin.String(), "direction", dir.String())
	return sh, nil
}

// open walks the driver: controller, then line, then request.
func (c *Cache) open(pin PinID, dir Direction) (Handle, error) {
	c.logger.Info("opening controller", "controller", pin.Controller)
	ctrl, err := c.driver.OpenController(pin.Controller)
	if err != nil {
		return nil, driverError(StageOpenController, pin, err)
	}
	defer func() {
		if closeErr := ctrl.Close(); closeErr != nil {
			c.logger.Warn("closing controller failed", "controller", pin.Controller, "error", closeErr)
		}
	}()

	c.logger.Info("getting line", "pin", pin.String())
	line, err := ctrl.Line(pin.Offset)
	if err != nil {
		return nil, driverError(StageGetLine, pin, err)
	}

	c.logger.Info("requesting line", "pin", pin.String(), "direction", dir.String(), "consumer", c.consumer)
	h, err := line.Request(dir, 0, c.consumer)
	if err != nil {
		return nil, driverError(StageRequestLine, pin, err)
	}
	return h, nil
}

func (c *Cache) releaseRef(pin PinID, sh *sharedHandle) {
	if err := sh.release(); err != nil {
		c.logger.Warn("closing line handle failed", "pin", pin.String(), "error", err)
	}
}

// Entries returns the cached pins sorted by PinID.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	entries := make([]Entry, 0, len(c.handles))
	for pin, sh := range c.handles {
		entries = append(entries, Entry{Pin: pin, Direction: sh.direction})
	}
	c.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		return a.Pin.Compare(b.Pin)
	})
	return entries
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries:  c.Len(),
		Opens:    c.opens.Load(),
		FastHits: c.fastHits.Load(),
		Reopens:  c.reopens.Load(),
		Failures: c.failures.Load(),
	}
}

// Close drops every cached handle. Lines still used by in-flight actions are
// released when those actions finish. Operations after Close return
// ErrCacheClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for pin, sh := range c.handles {
		delete(c.handles, pin)
		if err := sh.release(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", pin, err))
		}
	}
	return errors.Join(errs...)
}
