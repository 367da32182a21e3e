//go:build !linux

package sensor

import "time"

func monotonicNanos(fallback time.Time) int64 {
	return time.Since(fallback).Nanoseconds()
}
