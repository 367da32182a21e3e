package collector

import (
	"testing"

	"codeberg.org/mutker/sensoragent/internal/sensor"
	"github.com/stretchr/testify/assert"
)

func TestSessionStateCounters(t *testing.T) {
	s := newSessionState()
	types := []sensor.Type{sensor.Accelerometer, sensor.Gyroscope}

	assert.Zero(t, s.accepted[sensor.Accelerometer])
	assert.False(t, s.quotaReached(types))

	assert.True(t, s.offer(Sample{SensorType: sensor.Accelerometer, Timestamp: 10}))
	assert.False(t, s.offer(Sample{SensorType: sensor.Accelerometer, Timestamp: 20}))
	assert.Equal(t, 1, s.accepted[sensor.Accelerometer])
	assert.Equal(t, 2, s.raw[sensor.Accelerometer])
	assert.Equal(t, int64(10), s.lastAccepted[sensor.Accelerometer].Timestamp)

	// Streams are throttled independently
	assert.True(t, s.offer(Sample{SensorType: sensor.Gyroscope, Timestamp: 20}))
}

func TestQuotaReached(t *testing.T) {
	s := newSessionState()
	types := []sensor.Type{sensor.Accelerometer, sensor.Gyroscope}

	s.accepted[sensor.Accelerometer] = Quota
	assert.False(t, s.quotaReached(types))

	s.accepted[sensor.Gyroscope] = Quota - 1
	assert.False(t, s.quotaReached(types))

	s.accepted[sensor.Gyroscope] = Quota
	assert.True(t, s.quotaReached(types))

	assert.False(t, s.quotaReached(nil), "an empty quota set never completes")
}
