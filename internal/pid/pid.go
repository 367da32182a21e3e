// Package pid guards against two agents running on one host.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"golang.org/x/sys/unix"
)

const (
	pidFile = "sensoragent.pid"
)

// Path returns the default PID file location.
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to the default PID file.
func Write() error {
	return WriteFile(Path())
}

// Remove removes the default PID file.
func Remove() error {
	return RemoveFile(Path())
}

// WriteFile writes the current process ID to path. It fails with
// ErrAlreadyRunning when path names another live process. Stale or
// unreadable files are replaced.
func WriteFile(path string) error {
	errFactory := errors.New()
	self := os.Getpid()

	if data, err := os.ReadFile(path); err == nil {
		other, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr == nil && other != self && alive(other) {
			return errFactory.WithData(errors.ErrAlreadyRunning, other)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(self)), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// RemoveFile removes path. A missing file is not an error.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}
	return nil
}

// alive reports whether pid exists. EPERM means it exists under another user.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
