package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint     = "ws://192.168.100.22:8080"
	DefaultLogLevel     = "info"
	DefaultSensorSource = SensorSourceSimulated
	DefaultIIORoot      = "/sys/bus/iio/devices"
	DefaultJournalDB    = "/var/lib/sensoragent/journal.db"
	defaultEnvPrefix    = "SENSORAGENT"
	configName          = "sensoragent"
)

// Device carries static metadata used when the host cannot report it
// itself, e.g. a headless board without a display.
type Device struct {
	Manufacturer string  `mapstructure:"manufacturer"`
	Model        string  `mapstructure:"model"`
	Brand        string  `mapstructure:"brand"`
	Board        string  `mapstructure:"board"`
	Hardware     string  `mapstructure:"hardware"`
	Bootloader   string  `mapstructure:"bootloader"`
	HeightPixels int     `mapstructure:"height_pixels"`
	WidthPixels  int     `mapstructure:"width_pixels"`
	Density      float32 `mapstructure:"density"`
}

type Config struct {
	Endpoint       string        `mapstructure:"endpoint"`
	LogLevel       string        `mapstructure:"log_level"`
	Debug          bool          `mapstructure:"debug"`
	Verbose        bool          `mapstructure:"verbose"`
	SensorSource   string        `mapstructure:"sensor_source"`
	IIORoot        string        `mapstructure:"iio_root"`
	Journal        bool          `mapstructure:"journal"`
	JournalDB      string        `mapstructure:"journal_db"`
	MetricsListen  string        `mapstructure:"metrics_listen"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	Device         Device        `mapstructure:"device"`
}

// Load reads configuration from defaults, the config file, the environment
// and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: defaultEnvPrefix,
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	// Define flags
	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	flags.String("endpoint", DefaultEndpoint, "Collection endpoint URL (ws://host:port)")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.String("sensor-source", DefaultSensorSource, "Sensor source (simulated, iio)")
	flags.String("iio-root", DefaultIIORoot, "Root of the IIO sysfs device tree")
	flags.Bool("journal", false, "Record session summaries in the journal database")
	flags.String("journal-db", DefaultJournalDB, "Path to the journal database")
	flags.String("metrics-listen", "", "Address to serve Prometheus metrics on (disabled if empty)")
	flags.Duration("session-timeout", 0, "Stop the collection session after this duration (0 disables)")

	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Flag names use dashes, config keys use underscores
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			panic(err) // unreachable: f comes from flags
		}
	})

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load configuration from file
	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}
	v.SetConfigType("toml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath("/etc/sensoragent")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// Debug and verbose are shorthands for a log level
	if config.Debug {
		config.LogLevel = string(LogLevelDebug)
	} else if config.Verbose && config.LogLevel == DefaultLogLevel {
		config.LogLevel = string(LogLevelInfo)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("sensor_source", DefaultSensorSource)
	v.SetDefault("iio_root", DefaultIIORoot)
	v.SetDefault("journal", false)
	v.SetDefault("journal_db", DefaultJournalDB)
	v.SetDefault("metrics_listen", "")
	v.SetDefault("session_timeout", time.Duration(0))
	v.SetDefault("device.density", 1.0)
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errFactory.WithData(errors.ErrInvalidEndpoint, c.Endpoint)
	}

	switch c.SensorSource {
	case SensorSourceSimulated, SensorSourceIIO:
	default:
		return errFactory.WithData(errors.ErrInvalidSensorSource, c.SensorSource)
	}

	if c.Journal && c.JournalDB == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "journal enabled without journal_db")
	}

	if c.SessionTimeout < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "negative session_timeout")
	}

	return nil
}

func (c *Config) GetEndpoint() string              { return c.Endpoint }
func (c *Config) GetLogLevel() string              { return c.LogLevel }
func (c *Config) GetSensorSource() string          { return c.SensorSource }
func (c *Config) IsJournalEnabled() bool           { return c.Journal }
func (c *Config) GetJournalDBPath() string         { return c.JournalDB }
func (c *Config) GetMetricsListen() string         { return c.MetricsListen }
func (c *Config) GetSessionTimeout() time.Duration { return c.SessionTimeout }

var _ Provider = (*Config)(nil)
