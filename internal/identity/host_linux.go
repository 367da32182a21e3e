//go:build linux

package identity

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/sensoragent/internal/config"
	"codeberg.org/mutker/sensoragent/internal/errors"
	"golang.org/x/sys/unix"
)

// LinuxHost derives platform metadata from the running Linux system:
// machine-id for the install identifier, uname and os-release for the
// build record, and DMI strings for vendor fields where present.
type LinuxHost struct {
	install string
	build   BuildInfo
	version VersionInfo
	screen  ScreenInfo
}

// Paths read by NewLinuxHost, rooted at "/" outside of tests.
type hostPaths struct {
	root string
}

func (p hostPaths) join(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}

// NewLinuxHost reads host metadata once. Device overrides from config fill
// the fields Linux has no equivalent for.
func NewLinuxHost(device config.Device) (*LinuxHost, error) {
	return newLinuxHost(hostPaths{root: "/"}, device)
}

func newLinuxHost(paths hostPaths, device config.Device) (*LinuxHost, error) {
	errFactory := errors.New()

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, errFactory.Wrap(ErrHostInfo, err)
	}
	sysname := unix.ByteSliceToString(uts.Sysname[:])
	nodename := unix.ByteSliceToString(uts.Nodename[:])
	release := unix.ByteSliceToString(uts.Release[:])
	kversion := unix.ByteSliceToString(uts.Version[:])
	machine := unix.ByteSliceToString(uts.Machine[:])

	osRelease := readOSRelease(paths.join("etc", "os-release"))

	install := readTrimmed(paths.join("etc", "machine-id"))
	if install == "" {
		install = readTrimmed(paths.join("var", "lib", "dbus", "machine-id"))
	}

	b := BuildInfo{
		Manufacturer: readTrimmed(paths.join("sys", "class", "dmi", "id", "sys_vendor")),
		Hardware:     machine,
		Model:        readTrimmed(paths.join("sys", "class", "dmi", "id", "product_name")),
		Bootloader:   readTrimmed(paths.join("sys", "class", "dmi", "id", "bios_version")),
		Product:      osRelease["ID"],
		Tags:         osRelease["VARIANT_ID"],
		Type:         sysname,
		User:         os.Getenv("USER"),
		Display:      osRelease["PRETTY_NAME"],
		Board:        readTrimmed(paths.join("sys", "class", "dmi", "id", "board_name")),
		Brand:        osRelease["NAME"],
		Device:       nodename,
		Host:         nodename,
		ID:           osRelease["BUILD_ID"],
	}
	b.Fingerprint = strings.Join([]string{
		osRelease["ID"], osRelease["VERSION_ID"], machine, release, kversion,
	}, "/")

	v := VersionInfo{
		Release:     osRelease["VERSION_ID"],
		Codename:    osRelease["VERSION_CODENAME"],
		Incremental: release,
		SdkInt:      kernelMajor(release),
	}

	var s ScreenInfo
	applyDevice(&b, &s, device)

	return &LinuxHost{install: install, build: b, version: v, screen: s}, nil
}

func (h *LinuxHost) InstallID() string    { return h.install }
func (h *LinuxHost) Build() BuildInfo     { return h.build }
func (h *LinuxHost) Version() VersionInfo { return h.version }
func (h *LinuxHost) Screen() ScreenInfo   { return h.screen }

func readTrimmed(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// readOSRelease parses KEY=value lines, unquoting values.
func readOSRelease(path string) map[string]string {
	out := make(map[string]string)
	f, err := os.Open(path)
	if err != nil {
		return out
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		} else {
			value = strings.Trim(value, `'"`)
		}
		out[key] = value
	}
	return out
}

func kernelMajor(release string) int {
	major, _, _ := strings.Cut(release, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}
