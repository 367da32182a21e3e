package identity_test

import (
	"encoding/json"
	"regexp"
	"testing"

	"codeberg.org/mutker/sensoragent/internal/identity"
	"codeberg.org/mutker/sensoragent/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frozenClock struct{}

func (frozenClock) UptimeMillis() int64 { return 0 }

type fakeRegistry struct {
	types []sensor.Type
}

func (r fakeRegistry) Enumerate() []sensor.Type                               { return r.types }
func (fakeRegistry) Subscribe(sensor.Type, sensor.Rate, sensor.Handler) error { return nil }
func (fakeRegistry) Unsubscribe(sensor.Type)                                  {}

func testHost() identity.StaticHost {
	return identity.StaticHost{
		Install: "a1b2c3d4e5f60718",
		BuildRec: identity.BuildInfo{
			Manufacturer: "Google",
			Model:        "Pixel 7",
			Fingerprint:  "google/panther/panther:14/UQ1A/1234:user/release-keys",
		},
		VersionRec: identity.VersionInfo{Release: "14", Codename: "REL", Incremental: "1234", SdkInt: 34},
		ScreenRec:  identity.ScreenInfo{HeightPixels: 2400, WidthPixels: 1080, Density: 2.625},
	}
}

var hex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestComputeID(t *testing.T) {
	id, err := identity.ComputeID("", "")
	require.NoError(t, err)
	// SHA-256 of the empty string
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", id)

	id, err = identity.ComputeID("abc", "")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", id)
}

func TestComputeIDDeterminism(t *testing.T) {
	a, err := identity.ComputeID("install-1", "fingerprint-1")
	require.NoError(t, err)
	b, err := identity.ComputeID("install-1", "fingerprint-1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, hex64, a)

	changedInstall, err := identity.ComputeID("install-2", "fingerprint-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, changedInstall)

	changedFingerprint, err := identity.ComputeID("install-1", "fingerprint-2")
	require.NoError(t, err)
	assert.NotEqual(t, a, changedFingerprint)
}

func TestBuild(t *testing.T) {
	host := testHost()
	reg := fakeRegistry{types: []sensor.Type{sensor.Accelerometer, sensor.Gyroscope, sensor.Accelerometer}}

	id, err := identity.Build(host, reg, identity.Options{BenchRuns: 3, BenchClock: frozenClock{}})
	require.NoError(t, err)

	expected, err := identity.ComputeID(host.Install, host.BuildRec.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, expected, id.ID)
	assert.Equal(t, host.BuildRec, id.Build)
	assert.Equal(t, host.VersionRec, id.Version)
	assert.Equal(t, host.ScreenRec, id.Screen)
	// Host order, duplicates kept
	assert.Equal(t, []int{1, 4, 1}, id.SensorList)
	assert.Len(t, id.PerfBench, 3)
}

func TestBuildDefaultRuns(t *testing.T) {
	id, err := identity.Build(testHost(), fakeRegistry{}, identity.Options{BenchClock: frozenClock{}})
	require.NoError(t, err)
	assert.Len(t, id.PerfBench, 10)
	assert.Empty(t, id.SensorList)
}

func TestProfileWireFormat(t *testing.T) {
	id, err := identity.Build(testHost(), fakeRegistry{types: []sensor.Type{sensor.Gravity}},
		identity.Options{BenchRuns: 1, BenchClock: frozenClock{}})
	require.NoError(t, err)

	raw, err := id.MarshalProfile()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))

	assert.Equal(t, id.ID, msg["id"])
	assert.Equal(t, "systemInfo", msg["messageType"])
	assert.Equal(t, []any{float64(9)}, msg["sensorList"])
	assert.Len(t, msg["perfBench"], 1)

	build, ok := msg["build"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{
		"manufacturer", "hardware", "model", "bootloader", "product", "tags", "type", "user",
		"display", "board", "brand", "device", "fingerprint", "host", "id",
	} {
		assert.Contains(t, build, key)
	}
	assert.Equal(t, "Pixel 7", build["model"])

	version, ok := msg["version"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "14", version["release"])
	assert.Equal(t, float64(34), version["sdkInt"])

	screen, ok := msg["screen"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2400), screen["heightPixels"])
	assert.Equal(t, float64(1080), screen["widthPixels"])
	assert.InDelta(t, 2.625, screen["density"], 1e-6)
}

func TestProfileEmptyListsAreArrays(t *testing.T) {
	raw, err := (&identity.Identity{ID: "x"}).MarshalProfile()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sensorList":[]`)
	assert.Contains(t, string(raw), `"perfBench":[]`)
}
