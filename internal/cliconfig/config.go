package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// Defaults for the capture, matching the legacy settings file.
const (
	DefaultPort           = "COM3"
	DefaultBaud           = 115200
	DefaultLogDir         = "Logs"
	DefaultFlushInterval  = 60 * time.Second
	DefaultStatusInterval = time.Second
	DefaultGrace          = 500 * time.Millisecond
)

// Config holds CLI configuration for canlog.
type Config struct {
	Port string
	Baud int

	LogDir         string
	FlushInterval  time.Duration
	StatusInterval time.Duration
	Grace          time.Duration
	FlushOnStop    bool

	QueueLimit     int
	OverflowPolicy string

	// Retention of old log files; disabled when RetentionHigh is 0.
	RetentionInterval time.Duration
	RetentionHigh     int64
	RetentionLow      int64

	// SettingsPath is the legacy config.ini holding Port and Baud.
	SettingsPath string
	// Watch restarts the capture when the config or settings file changes.
	Watch bool

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:              DefaultPort,
		Baud:              DefaultBaud,
		LogDir:            DefaultLogDir,
		FlushInterval:     DefaultFlushInterval,
		StatusInterval:    DefaultStatusInterval,
		Grace:             DefaultGrace,
		OverflowPolicy:    "drop-oldest",
		RetentionInterval: time.Hour,
		SettingsPath:      DefaultSettingsPath(),
		LogLevel:          "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	if c.QueueLimit < 0 {
		return fmt.Errorf("queue limit must not be negative")
	}
	switch c.OverflowPolicy {
	case "", "drop-oldest", "drop-newest":
	default:
		return fmt.Errorf("unknown overflow policy %q", c.OverflowPolicy)
	}
	if c.RetentionHigh < 0 || c.RetentionLow < 0 {
		return fmt.Errorf("retention watermarks must not be negative")
	}
	if c.RetentionHigh > 0 {
		if c.RetentionLow == 0 {
			c.RetentionLow = c.RetentionHigh * 3 / 4
		}
		if c.RetentionLow >= c.RetentionHigh {
			return fmt.Errorf("retention low watermark must be below the high watermark")
		}
		if c.RetentionInterval <= 0 {
			return fmt.Errorf("retention interval must be positive")
		}
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
