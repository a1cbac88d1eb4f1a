package config

import (
	"os"

	"codeberg.org/mutker/radmon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval          = 1
	defaultWindow            = 60
	defaultTransmitThreshold = 120
	defaultBatchSize         = 180
	defaultBatchDelay        = 16
	defaultLinkTimeout       = 180
	defaultAlertCooldown     = 30
	defaultDoseThreshold     = 0.75
	defaultTempThreshold     = 50.0
	defaultTubeFactor        = 0.0057
	defaultPulseBaud         = 9600
	defaultLogPath           = "/var/lib/radmon/data.log"
	defaultTelemetryDB       = "/var/lib/radmon/telemetry.db"
	defaultCollectorURL      = "https://api.thingspeak.com"
)

// Config holds the full deploy-time configuration surface. Values are fixed
// after Load; there is no runtime reconfiguration on the device.
type Config struct {
	Interval          int     `mapstructure:"interval"`           // scheduler tick, seconds
	Window            int     `mapstructure:"window"`             // sampling window, seconds
	TransmitThreshold int     `mapstructure:"transmit_threshold"` // readings buffered before an upload pass
	BatchSize         int     `mapstructure:"batch_size"`         // max records per bulk POST
	BatchDelay        int     `mapstructure:"batch_delay"`        // pause between bulk POSTs, seconds
	CollectorURL      string  `mapstructure:"collector_url"`
	ChannelID         string  `mapstructure:"channel_id"`
	WriteAPIKey       string  `mapstructure:"write_api_key"`
	AlertURL          string  `mapstructure:"alert_url"`
	AlertAPIKey       string  `mapstructure:"alert_api_key"`
	DoseThreshold     float64 `mapstructure:"dose_threshold"` // µSv/h
	TempThreshold     float64 `mapstructure:"temp_threshold"` // °C, case probe
	AlertCooldown     int     `mapstructure:"alert_cooldown"` // minutes
	TubeFactor        float64 `mapstructure:"tube_factor"`    // CPM → µSv/h calibration
	LogPath           string  `mapstructure:"log_path"`
	Telemetry         bool    `mapstructure:"telemetry"`
	TelemetryDB       string  `mapstructure:"database"`
	PulsePort         string  `mapstructure:"pulse_port"` // serial detector board
	PulseBaud         int     `mapstructure:"pulse_baud"`
	ProbePort         string  `mapstructure:"probe_port"` // 1-wire UART adapter
	LinkUpCmd         string  `mapstructure:"link_up_cmd"`
	LinkDownCmd       string  `mapstructure:"link_down_cmd"`
	LinkTimeout       int     `mapstructure:"link_timeout"` // seconds
	StatusAddr        string  `mapstructure:"status_addr"`
	LogLevel          string  `mapstructure:"log_level"`
	Debug             bool    `mapstructure:"debug"`
	Verbose           bool    `mapstructure:"verbose"`
}

// Load reads configuration from the TOML config file (path taken from the
// RADMON_CONFIG environment variable, falling back to /etc/radmon.toml),
// then applies command line flag overrides and validates the result.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("radmon", pflag.ContinueOnError)
	// Let go test and wrapper flags pass through untouched.
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Int("interval", defaultInterval, "Scheduler tick in seconds")
	fs.Int("window", defaultWindow, "Sampling window in seconds")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	fs.String("log-path", defaultLogPath, "Path of the local reading log")
	fs.String("status-addr", "", "Listen address for the local status endpoint")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if path := os.Getenv("RADMON_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("radmon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	flagKeys := map[string]string{
		"interval":    "interval",
		"window":      "window",
		"debug":       "debug",
		"verbose":     "verbose",
		"log-level":   "log_level",
		"log-path":    "log_path",
		"status-addr": "status_addr",
	}
	fs.Visit(func(f *pflag.Flag) {
		v.Set(flagKeys[f.Name], f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("window", defaultWindow)
	v.SetDefault("transmit_threshold", defaultTransmitThreshold)
	v.SetDefault("batch_size", defaultBatchSize)
	v.SetDefault("batch_delay", defaultBatchDelay)
	v.SetDefault("collector_url", defaultCollectorURL)
	v.SetDefault("dose_threshold", defaultDoseThreshold)
	v.SetDefault("temp_threshold", defaultTempThreshold)
	v.SetDefault("alert_cooldown", defaultAlertCooldown)
	v.SetDefault("tube_factor", defaultTubeFactor)
	v.SetDefault("log_path", defaultLogPath)
	v.SetDefault("database", defaultTelemetryDB)
	v.SetDefault("pulse_baud", defaultPulseBaud)
	v.SetDefault("link_timeout", defaultLinkTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
}

// Validate checks the loaded configuration for values the scheduler and
// uploader cannot work with.
func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Window <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "sampling window must be positive")
	}
	if c.TransmitThreshold <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "transmit threshold must be positive")
	}
	if c.BatchSize <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "batch size must be positive")
	}
	if c.BatchDelay < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "batch delay must not be negative")
	}
	if c.TubeFactor <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "tube factor must be positive")
	}

	return nil
}
