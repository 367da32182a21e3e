// Package sensor defines the boundary to the host's sensor subsystem and
// ships two registries: a synthetic motion simulator and a Linux IIO poller.
package sensor

import (
	"fmt"
	"time"
)

// Type identifies a sensor kind. Values follow the Android sensor type
// numbering so that collection endpoints see the same ids regardless of host.
type Type int

const (
	Accelerometer Type = 1
	MagneticField Type = 2
	Gyroscope     Type = 4
	Gravity       Type = 9
)

// DefaultTypes is the motion sensor set collected per session.
var DefaultTypes = []Type{Accelerometer, Gravity, MagneticField, Gyroscope}

func (t Type) String() string {
	switch t {
	case Accelerometer:
		return "accelerometer"
	case MagneticField:
		return "magnetic_field"
	case Gyroscope:
		return "gyroscope"
	case Gravity:
		return "gravity"
	default:
		return fmt.Sprintf("type_%d", int(t))
	}
}

// Rate is a sampling period hint passed on subscription.
type Rate time.Duration

// RateNormal matches the platform's "normal" delay of 200ms.
const RateNormal = Rate(200 * time.Millisecond)

// Event is one raw reading delivered by the host. Timestamp is monotonic
// nanoseconds.
type Event struct {
	Type      Type
	Timestamp int64
	Accuracy  int
	Values    []float32
}

// Handler receives raw events. A registry may invoke it from any goroutine.
type Handler func(Event)

// Registry is the host sensor subsystem.
type Registry interface {
	// Enumerate lists every sensor type physically present, in host order.
	Enumerate() []Type

	// Subscribe starts delivering events of type t to h.
	Subscribe(t Type, rate Rate, h Handler) error

	// Unsubscribe stops delivery for t. Unknown types are ignored.
	Unsubscribe(t Type)
}
