package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (CANLOG_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", os.Getenv("CANLOG_PORT"), &cfg.Port)
	s.setString("log-dir", os.Getenv("CANLOG_LOG_DIR"), &cfg.LogDir)
	s.setString("overflow", os.Getenv("CANLOG_OVERFLOW_POLICY"), &cfg.OverflowPolicy)
	s.setString("log-level", os.Getenv("CANLOG_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("baud", os.Getenv("CANLOG_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-limit", os.Getenv("CANLOG_QUEUE_LIMIT"), &cfg.QueueLimit); err != nil {
		return err
	}

	if err := s.setDuration("flush-interval", os.Getenv("CANLOG_FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("status-interval", os.Getenv("CANLOG_STATUS_INTERVAL"), &cfg.StatusInterval); err != nil {
		return err
	}
	if err := s.setDuration("grace", os.Getenv("CANLOG_GRACE"), &cfg.Grace); err != nil {
		return err
	}
	if err := s.setDuration("retention-interval", os.Getenv("CANLOG_RETENTION_INTERVAL"), &cfg.RetentionInterval); err != nil {
		return err
	}

	if err := s.setInt64FromString("retention-high", os.Getenv("CANLOG_RETENTION_HIGH"), &cfg.RetentionHigh); err != nil {
		return err
	}
	if err := s.setInt64FromString("retention-low", os.Getenv("CANLOG_RETENTION_LOW"), &cfg.RetentionLow); err != nil {
		return err
	}

	s.setBoolFromString("flush-on-stop", os.Getenv("CANLOG_FLUSH_ON_STOP"), &cfg.FlushOnStop)
	s.setBoolFromString("watch", os.Getenv("CANLOG_WATCH"), &cfg.Watch)

	return nil
}
