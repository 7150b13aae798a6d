package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port              string `toml:"port"`
	Baud              int    `toml:"baud"`
	LogDir            string `toml:"log_dir"`
	FlushInterval     string `toml:"flush_interval"`
	StatusInterval    string `toml:"status_interval"`
	Grace             string `toml:"grace"`
	FlushOnStop       *bool  `toml:"flush_on_stop"`
	QueueLimit        int    `toml:"queue_limit"`
	OverflowPolicy    string `toml:"overflow_policy"`
	RetentionInterval string `toml:"retention_interval"`
	RetentionHigh     int64  `toml:"retention_high_bytes"`
	RetentionLow      int64  `toml:"retention_low_bytes"`
	Watch             *bool  `toml:"watch"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.canlog/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".canlog", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setString("log-dir", fc.LogDir, &cfg.LogDir)
	s.setString("overflow", fc.OverflowPolicy, &cfg.OverflowPolicy)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("status-interval", fc.StatusInterval, &cfg.StatusInterval); err != nil {
		return err
	}
	if err := s.setDuration("grace", fc.Grace, &cfg.Grace); err != nil {
		return err
	}
	if err := s.setDuration("retention-interval", fc.RetentionInterval, &cfg.RetentionInterval); err != nil {
		return err
	}

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("queue-limit", fc.QueueLimit, &cfg.QueueLimit)
	s.setInt64("retention-high", fc.RetentionHigh, &cfg.RetentionHigh)
	s.setInt64("retention-low", fc.RetentionLow, &cfg.RetentionLow)

	s.setBool("flush-on-stop", fc.FlushOnStop, &cfg.FlushOnStop)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
