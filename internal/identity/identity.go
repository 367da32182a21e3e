// Package identity builds the one-time device profile: a stable device id,
// static build metadata, the sensor inventory and benchmark results.
package identity

import (
	"crypto"
	_ "crypto/sha256" // registers crypto.SHA256
	"encoding/hex"
	"encoding/json"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"codeberg.org/mutker/sensoragent/internal/perfbench"
	"codeberg.org/mutker/sensoragent/internal/sensor"
)

// MessageType tags the profile on the wire.
const MessageType = "systemInfo"

// Identity is computed once at startup and never mutated.
type Identity struct {
	ID         string
	Build      BuildInfo
	Version    VersionInfo
	Screen     ScreenInfo
	PerfBench  []string
	SensorList []int
}

// Options tune Build. The zero value runs the default suite on the system clock.
type Options struct {
	BenchRuns  int
	BenchClock perfbench.Clock
}

// ComputeID returns the lowercase hex SHA-256 of installID followed by
// fingerprint.
func ComputeID(installID, fingerprint string) (string, error) {
	if !crypto.SHA256.Available() {
		return "", errors.New().New(ErrHashUnavailable)
	}
	h := crypto.SHA256.New()
	h.Write([]byte(installID + fingerprint))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Build collects everything synchronously: id, static metadata, benchmark
// suite and sensor inventory. It performs no network I/O.
func Build(host Host, registry sensor.Registry, opts Options) (*Identity, error) {
	log := logger.Component("identity")
	errFactory := errors.New()

	b := host.Build()
	id, err := ComputeID(host.InstallID(), b.Fingerprint)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrBuildIdentity, err)
	}

	runs := opts.BenchRuns
	if runs <= 0 {
		runs = perfbench.DefaultRuns
	}
	bench := perfbench.New(opts.BenchClock).RunSuite(runs)

	types := registry.Enumerate()
	sensors := make([]int, len(types))
	for i, t := range types {
		sensors[i] = int(t)
	}

	log.Info().
		Str("id", id).
		Str("model", b.Model).
		Ints("sensors", sensors).
		Int("bench_runs", len(bench)).
		Msg("Device identity built")

	return &Identity{
		ID:         id,
		Build:      b,
		Version:    host.Version(),
		Screen:     host.Screen(),
		PerfBench:  bench,
		SensorList: sensors,
	}, nil
}

// Profile is the startup message announcing the device.
type Profile struct {
	ID          string      `json:"id"`
	MessageType string      `json:"messageType"`
	Build       BuildInfo   `json:"build"`
	Version     VersionInfo `json:"version"`
	Screen      ScreenInfo  `json:"screen"`
	SensorList  []int       `json:"sensorList"`
	PerfBench   []string    `json:"perfBench"`
}

// Profile returns the wire form of the identity.
func (i *Identity) Profile() Profile {
	sensors := i.SensorList
	if sensors == nil {
		sensors = []int{}
	}
	bench := i.PerfBench
	if bench == nil {
		bench = []string{}
	}
	return Profile{
		ID:          i.ID,
		MessageType: MessageType,
		Build:       i.Build,
		Version:     i.Version,
		Screen:      i.Screen,
		SensorList:  sensors,
		PerfBench:   bench,
	}
}

// MarshalProfile serializes the profile message.
func (i *Identity) MarshalProfile() ([]byte, error) {
	return json.Marshal(i.Profile())
}
