package collector

import (
	"encoding/json"

	"codeberg.org/mutker/sensoragent/internal/sensor"
)

// MessageType tags sample messages on the wire.
const MessageType = "sensor"

// Sample is one accepted reading. It is never mutated after construction.
type Sample struct {
	DeviceID    string      `json:"id"`
	MessageType string      `json:"messageType"`
	Timestamp   int64       `json:"timestamp"`
	Accuracy    int         `json:"accuracy"`
	SensorType  sensor.Type `json:"type"`
	X           float32     `json:"x"`
	Y           float32     `json:"y"`
	Z           float32     `json:"z"`
}

// NewSample copies a raw event. Missing axes read as zero.
func NewSample(deviceID string, e sensor.Event) Sample {
	var axes [3]float32
	copy(axes[:], e.Values)
	return Sample{
		DeviceID:    deviceID,
		MessageType: MessageType,
		Timestamp:   e.Timestamp,
		Accuracy:    e.Accuracy,
		SensorType:  e.Type,
		X:           axes[0],
		Y:           axes[1],
		Z:           axes[2],
	}
}

// Marshal encodes the sample message.
func (s Sample) Marshal() ([]byte, error) {
	return json.Marshal(s)
}
