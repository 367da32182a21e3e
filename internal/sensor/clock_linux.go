//go:build linux

package sensor

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonicNanos returns nanoseconds since boot, including suspend, the
// same base the platform uses for sensor event timestamps.
func monotonicNanos(fallback time.Time) int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return time.Since(fallback).Nanoseconds()
	}
	return ts.Nano()
}
