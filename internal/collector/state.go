package collector

import "codeberg.org/mutker/sensoragent/internal/sensor"

const (
	// ThrottleWindow is the minimum timestamp distance, in nanoseconds,
	// between two accepted samples of one sensor type.
	ThrottleWindow int64 = 100000000

	// Quota is the number of accepted samples each type must reach.
	Quota = 50
)

// sessionState is owned by the collector's worker goroutine and is never
// touched from anywhere else.
type sessionState struct {
	lastAccepted map[sensor.Type]Sample
	accepted     map[sensor.Type]int
	raw          map[sensor.Type]int
}

func newSessionState() *sessionState {
	return &sessionState{
		lastAccepted: make(map[sensor.Type]Sample),
		accepted:     make(map[sensor.Type]int),
		raw:          make(map[sensor.Type]int),
	}
}

// offer applies the throttle rule and records the sample on acceptance.
// The first sample of a type is always accepted, even when its timestamp
// is closer than ThrottleWindow to zero.
func (s *sessionState) offer(sample Sample) bool {
	s.raw[sample.SensorType]++

	last, seen := s.lastAccepted[sample.SensorType]
	if seen && sample.Timestamp-last.Timestamp < ThrottleWindow {
		return false
	}

	s.lastAccepted[sample.SensorType] = sample
	s.accepted[sample.SensorType]++
	return true
}

// quotaReached reports whether every type has reached Quota.
func (s *sessionState) quotaReached(types []sensor.Type) bool {
	for _, t := range types {
		if s.accepted[t] < Quota {
			return false
		}
	}
	return len(types) > 0
}

func copyCounts(m map[sensor.Type]int) map[sensor.Type]int {
	out := make(map[sensor.Type]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
