package logiter

import "time"

var processStart = time.Now()

// wallClockSeconds returns a monotonic seconds counter suitable for timing
// how long a single svn log call took; it is swapped out in tests via
// Iterator.timeFn so chunk-sizing behavior is deterministic.
func wallClockSeconds() float64 {
	return time.Since(processStart).Seconds()
}
