package gpio

import (
	"math"
	"time"
)

// playSchedule drives h low, then for every duration waits that long and
// inverts the line. It returns the last value written.
//
// For durations [100ms, 50ms, 200ms] the line goes 0, 1, 0, 1 and the
// result is 1. An empty schedule only drives the line low.
func playSchedule(h Handle, durations []time.Duration, sleep func(time.Duration)) (int, error) {
	value := 0
	if err := h.SetValue(value); err != nil {
		return value, err
	}

	for _, d := range durations {
		sleep(d)
		value ^= 1
		if err := h.SetValue(value); err != nil {
			return value, err
		}
	}
	return value, nil
}

// TotalDuration sums a schedule. The sum saturates at the largest
// representable duration instead of wrapping.
func TotalDuration(durations []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range durations {
		if d > 0 && total > math.MaxInt64-d {
			return math.MaxInt64
		}
		total += d
	}
	return total
}

// Milliseconds converts a millisecond schedule, as received over HTTP or
// MQTT, into durations.
func Milliseconds(ms []uint32) []time.Duration {
	durations := make([]time.Duration, len(ms))
	for i, m := range ms {
		durations[i] = time.Duration(m) * time.Millisecond
	}
	return durations
}
