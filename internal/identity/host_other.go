//go:build !linux

package identity

import (
	"os"
	"runtime"

	"codeberg.org/mutker/sensoragent/internal/config"
)

// NewLinuxHost falls back to a static host on non-Linux systems, built
// from the hostname and configured device overrides.
func NewLinuxHost(device config.Device) (*StaticHost, error) {
	hostname, _ := os.Hostname()
	h := &StaticHost{
		Install: hostname,
		BuildRec: BuildInfo{
			Hardware:    runtime.GOARCH,
			Type:        runtime.GOOS,
			Device:      hostname,
			Host:        hostname,
			Fingerprint: runtime.GOOS + "/" + runtime.GOARCH + "/" + hostname,
		},
	}
	applyDevice(&h.BuildRec, &h.ScreenRec, device)
	return h, nil
}
