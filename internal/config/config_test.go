package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sensoragent/internal/config"
	"codeberg.org/mutker/sensoragent/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "sensoragent.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
endpoint = "ws://10.0.0.5:9000"
log_level = "debug"
sensor_source = "iio"
iio_root = "/tmp/iio"
journal = true
journal_db = "/path/to/journal.db"
metrics_listen = ":9101"
session_timeout = "2m"

[device]
model = "rpi4"
manufacturer = "raspberry"
height_pixels = 1080
width_pixels = 1920
density = 2.0
`)

	// Set environment variable to point to the test config file
	t.Setenv("SENSORAGENT_CONFIG", configPath)

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err)

	assert.Equal(t, "ws://10.0.0.5:9000", cfg.Endpoint)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.SensorSourceIIO, cfg.SensorSource)
	assert.Equal(t, "/tmp/iio", cfg.IIORoot)
	assert.True(t, cfg.Journal)
	assert.Equal(t, "/path/to/journal.db", cfg.JournalDB)
	assert.Equal(t, ":9101", cfg.MetricsListen)
	assert.Equal(t, 2*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, "rpi4", cfg.Device.Model)
	assert.Equal(t, "raspberry", cfg.Device.Manufacturer)
	assert.Equal(t, 1080, cfg.Device.HeightPixels)
	assert.Equal(t, 1920, cfg.Device.WidthPixels)
	assert.InDelta(t, 2.0, cfg.Device.Density, 1e-6)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SENSORAGENT_CONFIG", "")

	cfg, err := config.Load(config.WithArgs(nil))
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.SensorSourceSimulated, cfg.SensorSource)
	assert.Equal(t, config.DefaultIIORoot, cfg.IIORoot)
	assert.False(t, cfg.Journal)
	assert.Equal(t, config.DefaultJournalDB, cfg.JournalDB)
	assert.Empty(t, cfg.MetricsListen)
	assert.Zero(t, cfg.SessionTimeout)
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := writeConfig(t, `
endpoint = "ws://10.0.0.5:9000"
log_level = "error"
`)

	cfg, err := config.Load(
		config.WithConfigFile(configPath),
		config.WithArgs([]string{"--endpoint", "ws://127.0.0.1:8080", "--debug"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8080", cfg.Endpoint)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected --debug to force debug level")
}

func TestEnvOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `log_level = "error"`)
	t.Setenv("TESTAGENT_LOG_LEVEL", "warning")

	cfg, err := config.Load(
		config.WithConfigFile(configPath),
		config.WithEnvPrefix("TESTAGENT"),
		config.WithArgs(nil),
	)
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)

	_, err := config.Load(config.WithConfigFile(configPath), config.WithArgs(nil))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"log level", `log_level = "invalid"`, errors.ErrInvalidLogLevel},
		{"endpoint scheme", `endpoint = "http://host:80"`, errors.ErrInvalidEndpoint},
		{"endpoint host", `endpoint = "ws://"`, errors.ErrInvalidEndpoint},
		{"sensor source", `sensor_source = "bluetooth"`, errors.ErrInvalidSensorSource},
		{"journal path", "journal = true\njournal_db = \"\"", errors.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			_, err := config.Load(config.WithConfigFile(configPath), config.WithArgs(nil))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestUnknownFlag(t *testing.T) {
	_, err := config.Load(config.WithArgs([]string{"--no-such-flag"}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}
