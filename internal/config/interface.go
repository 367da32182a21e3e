package config

import "time"

// Provider defines the interface for accessing configuration values.
// All configuration values are immutable after initial loading.
type Provider interface {
	// GetEndpoint returns the collection endpoint URL
	GetEndpoint() string

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// GetSensorSource returns which sensor registry backs the collector
	GetSensorSource() string

	// IsJournalEnabled returns whether session summaries are journaled
	IsJournalEnabled() bool

	// GetJournalDBPath returns the path to the journal database
	GetJournalDBPath() string

	// GetMetricsListen returns the address serving /metrics, empty when disabled
	GetMetricsListen() string

	// GetSessionTimeout returns the collection session deadline, zero when disabled
	GetSessionTimeout() time.Duration
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "SENSORAGENT"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithArgs parses the given command line arguments instead of os.Args[1:]
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// Sensor sources
const (
	SensorSourceSimulated = "simulated"
	SensorSourceIIO       = "iio"
)
