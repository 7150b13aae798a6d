package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != "COM3" {
		t.Errorf("Port = %v, want COM3", cfg.Port)
	}
	if cfg.Baud != 115200 {
		t.Errorf("Baud = %v, want 115200", cfg.Baud)
	}
	if cfg.LogDir != "Logs" {
		t.Errorf("LogDir = %v, want Logs", cfg.LogDir)
	}
	if cfg.FlushInterval != time.Minute {
		t.Errorf("FlushInterval = %v, want 1m", cfg.FlushInterval)
	}
	if cfg.FlushOnStop {
		t.Error("FlushOnStop = true, want false")
	}
	if cfg.QueueLimit != 0 {
		t.Errorf("QueueLimit = %v, want unbounded", cfg.QueueLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{Port: "/dev/ttyUSB0", Baud: 921600, FlushInterval: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid minimal config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"zero baud", func(c *Config) { c.Baud = 0 }, true},
		{"zero flush interval", func(c *Config) { c.FlushInterval = 0 }, true},
		{"negative queue limit", func(c *Config) { c.QueueLimit = -1 }, true},
		{"bounded queue", func(c *Config) { c.QueueLimit = 1 << 20; c.OverflowPolicy = "drop-newest" }, false},
		{"unknown overflow policy", func(c *Config) { c.OverflowPolicy = "block" }, true},
		{"retention low above high", func(c *Config) {
			c.RetentionHigh, c.RetentionLow, c.RetentionInterval = 100, 200, time.Hour
		}, true},
		{"retention without interval", func(c *Config) { c.RetentionHigh = 100 }, true},
		{"negative watermark", func(c *Config) { c.RetentionLow = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	c := Config{
		Port:              "COM4",
		Baud:              115200,
		FlushInterval:     time.Second,
		RetentionHigh:     1000,
		RetentionInterval: time.Minute,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c.LogDir != DefaultLogDir {
		t.Errorf("LogDir = %v, want %v", c.LogDir, DefaultLogDir)
	}
	if c.StatusInterval != DefaultStatusInterval {
		t.Errorf("StatusInterval = %v, want %v", c.StatusInterval, DefaultStatusInterval)
	}
	if c.Grace != DefaultGrace {
		t.Errorf("Grace = %v, want %v", c.Grace, DefaultGrace)
	}
	if c.RetentionLow != 750 {
		t.Errorf("RetentionLow = %v, want 750", c.RetentionLow)
	}
}
