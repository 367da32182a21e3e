package identity

import (
	"codeberg.org/mutker/sensoragent/internal/config"
)

// BuildInfo mirrors the platform build record.
type BuildInfo struct {
	Manufacturer string `json:"manufacturer"`
	Hardware     string `json:"hardware"`
	Model        string `json:"model"`
	Bootloader   string `json:"bootloader"`
	Product      string `json:"product"`
	Tags         string `json:"tags"`
	Type         string `json:"type"`
	User         string `json:"user"`
	Display      string `json:"display"`
	Board        string `json:"board"`
	Brand        string `json:"brand"`
	Device       string `json:"device"`
	Fingerprint  string `json:"fingerprint"`
	Host         string `json:"host"`
	ID           string `json:"id"`
}

type VersionInfo struct {
	Release     string `json:"release"`
	Codename    string `json:"codename"`
	Incremental string `json:"incremental"`
	SdkInt      int    `json:"sdkInt"`
}

type ScreenInfo struct {
	HeightPixels int     `json:"heightPixels"`
	WidthPixels  int     `json:"widthPixels"`
	Density      float32 `json:"density"`
}

// Host provides static device properties. Reads are pass-through and
// never fail once the host has been constructed.
type Host interface {
	// InstallID is a quasi-stable per-install identifier.
	InstallID() string
	Build() BuildInfo
	Version() VersionInfo
	Screen() ScreenInfo
}

// StaticHost returns fixed values. It backs tests and hosts whose metadata
// is supplied entirely by configuration.
type StaticHost struct {
	Install    string
	BuildRec   BuildInfo
	VersionRec VersionInfo
	ScreenRec  ScreenInfo
}

func (h StaticHost) InstallID() string    { return h.Install }
func (h StaticHost) Build() BuildInfo     { return h.BuildRec }
func (h StaticHost) Version() VersionInfo { return h.VersionRec }
func (h StaticHost) Screen() ScreenInfo   { return h.ScreenRec }

// applyDevice fills empty build fields and the screen record from the
// configured device overrides.
func applyDevice(b *BuildInfo, s *ScreenInfo, d config.Device) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&b.Manufacturer, d.Manufacturer)
	set(&b.Model, d.Model)
	set(&b.Brand, d.Brand)
	set(&b.Board, d.Board)
	set(&b.Hardware, d.Hardware)
	set(&b.Bootloader, d.Bootloader)

	s.HeightPixels = d.HeightPixels
	s.WidthPixels = d.WidthPixels
	s.Density = d.Density
}
