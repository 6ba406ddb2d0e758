// Package gpio provides the pin-handle cache at the centre of http-gpio.
//
// A pin is addressed by a PinID (controller name + line offset). Requesting a
// line from the kernel is expensive and stateful, so the Cache keeps opened
// line handles between calls and shares them between concurrent callers.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                           Cache                               │
//	│                                                               │
//	│   Read / Write / RunSchedule                                  │
//	│        │                                                      │
//	│        ▼                                                      │
//	│   1. RLock: look up handle, take a reference, RUnlock         │
//	│      run action ── ok ──▶ done (fast path)                    │
//	│        │ failed or absent                                     │
//	│        ▼                                                      │
//	│   2. Lock: evict stale handle, open controller → line →       │
//	│      request(direction, 0, consumer), insert, Unlock          │
//	│        │                                                      │
//	│        ▼                                                      │
//	│   3. run action once more; result is final                    │
//	└───────────────────────────────────────────────────────────────┘
//	             │
//	             ▼
//	┌───────────────────────────┐
//	│ Driver (cdev, simdriver)  │
//	└───────────────────────────┘
//
// Handles are reference counted. Evicting a handle from the map drops the
// cache's reference; the line is released once every in-flight action that
// still holds it has finished.
//
// # Errors
//
// Every failure coming from a Driver is returned as a *DriverError, which
// matches ErrDriver under errors.Is. A failure against a cached handle is
// never returned; it triggers exactly one reopen.
//
// # Usage
//
//	cache := gpio.NewCache(driver, "http-gpio")
//	cache.SetLogger(logger)
//	defer cache.Close()
//
//	pin := gpio.PinID{Controller: "gpiochip0", Offset: 17}
//	if err := cache.Write(pin, 1); err != nil {
//	    return err
//	}
//	final, err := cache.RunSchedule(pin, []time.Duration{100 * time.Millisecond})
package gpio
