package sensor_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu     sync.Mutex
	events []sensor.Event
}

func (s *sink) handle(e sensor.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *sink) snapshot() []sensor.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sensor.Event(nil), s.events...)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "accelerometer", sensor.Accelerometer.String())
	assert.Equal(t, "gyroscope", sensor.Gyroscope.String())
	assert.Equal(t, "type_42", sensor.Type(42).String())
}

func TestSimulatorDeliversEvents(t *testing.T) {
	sim := sensor.NewSimulator(sensor.Accelerometer, sensor.Gyroscope)
	defer sim.Close()

	assert.Equal(t, []sensor.Type{sensor.Accelerometer, sensor.Gyroscope}, sim.Enumerate())

	var got sink
	require.NoError(t, sim.Subscribe(sensor.Accelerometer, sensor.Rate(5*time.Millisecond), got.handle))

	require.Eventually(t, func() bool { return got.len() >= 3 }, 2*time.Second, 5*time.Millisecond)

	events := got.snapshot()
	for i, e := range events {
		assert.Equal(t, sensor.Accelerometer, e.Type)
		assert.Len(t, e.Values, 3)
		if i > 0 {
			assert.Greater(t, e.Timestamp, events[i-1].Timestamp)
		}
	}

	sim.Unsubscribe(sensor.Accelerometer)
	time.Sleep(20 * time.Millisecond)
	n := got.len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, got.len(), "no events after unsubscribe")
}

func TestSimulatorRejectsUnknownAndDuplicate(t *testing.T) {
	sim := sensor.NewSimulator(sensor.Accelerometer)
	defer sim.Close()

	err := sim.Subscribe(sensor.Gravity, sensor.RateNormal, func(sensor.Event) {})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrSensorUnavailable))

	require.NoError(t, sim.Subscribe(sensor.Accelerometer, sensor.RateNormal, func(sensor.Event) {}))
	err = sim.Subscribe(sensor.Accelerometer, sensor.RateNormal, func(sensor.Event) {})
	assert.True(t, errors.HasCode(err, sensor.ErrAlreadySubscribed))

	// Unsubscribing twice is harmless
	sim.Unsubscribe(sensor.Accelerometer)
	sim.Unsubscribe(sensor.Accelerometer)
}

func writeIIO(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o600))
	}
}

func TestIIORegistry(t *testing.T) {
	root := t.TempDir()
	writeIIO(t, filepath.Join(root, "iio:device0"), map[string]string{
		"name":           "accel_3d",
		"in_accel_x_raw": "100",
		"in_accel_y_raw": "-200",
		"in_accel_z_raw": "1000",
		"in_accel_scale": "0.01",
	})
	writeIIO(t, filepath.Join(root, "iio:device1"), map[string]string{
		"name":              "gyro_3d",
		"in_anglvel_x_raw":  "1",
		"in_anglvel_y_raw":  "2",
		"in_anglvel_z_raw":  "3",
		"in_anglvel_offset": "1",
	})
	writeIIO(t, filepath.Join(root, "trigger0"), map[string]string{"name": "trigger"})

	reg, err := sensor.NewIIORegistry(root)
	require.NoError(t, err)
	defer reg.Close()

	assert.Equal(t, []sensor.Type{sensor.Accelerometer, sensor.Gyroscope}, reg.Enumerate())

	var accel, gyro sink
	require.NoError(t, reg.Subscribe(sensor.Accelerometer, sensor.Rate(5*time.Millisecond), accel.handle))
	require.NoError(t, reg.Subscribe(sensor.Gyroscope, sensor.Rate(5*time.Millisecond), gyro.handle))

	require.Eventually(t, func() bool { return accel.len() > 0 && gyro.len() > 0 }, 2*time.Second, 5*time.Millisecond)

	a := accel.snapshot()[0]
	assert.Equal(t, sensor.Accelerometer, a.Type)
	assert.InDeltaSlice(t, []float32{1, -2, 10}, a.Values, 1e-4)

	g := gyro.snapshot()[0]
	assert.InDeltaSlice(t, []float32{2, 3, 4}, g.Values, 1e-4)

	err = reg.Subscribe(sensor.MagneticField, sensor.RateNormal, func(sensor.Event) {})
	assert.True(t, errors.HasCode(err, sensor.ErrSensorUnavailable))
}

func TestIIORegistryMissingRoot(t *testing.T) {
	_, err := sensor.NewIIORegistry(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrSensorUnavailable))
}
