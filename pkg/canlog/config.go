package canlog

import (
	"fmt"
	"time"

	"github.com/bft-labs/canlog/internal/app"
	"github.com/bft-labs/canlog/internal/domain"
)

// Default values applied by [Config.SetDefaults].
const (
	DefaultBaud           = 115200
	DefaultLogDir         = "Logs"
	DefaultFlushInterval  = app.DefaultFlushInterval
	DefaultStatusInterval = time.Second
	DefaultGrace          = app.DefaultGrace
)

// Config holds the configuration of a capture.
type Config struct {
	// Port is the serial port name, for example "COM3" or "/dev/ttyUSB0".
	Port string

	// Baud is the serial link speed.
	Baud int

	// LogDir receives the CAN_<yyyyMMdd>_<HHmm>.csv files.
	LogDir string

	// FlushInterval is the period between two log file appends.
	FlushInterval time.Duration

	// StatusInterval is the period of the status readout.
	StatusInterval time.Duration

	// Grace bounds how long Stop waits for the stages before closing the
	// serial port under them.
	Grace time.Duration

	// FlushOnStop writes the frames still queued when Stop is called.
	// When false they are discarded.
	FlushOnStop bool

	// QueueLimit bounds each inter-stage queue. 0 means unbounded.
	QueueLimit int

	// OverflowPolicy is "drop-oldest" (default) or "drop-newest".
	// It only applies when QueueLimit is positive.
	OverflowPolicy string
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.StatusInterval == 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.Grace == 0 {
		c.Grace = DefaultGrace
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: port is required", domain.ErrInvalidConfig)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("%w: baud must be positive", domain.ErrInvalidConfig)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("%w: flush interval must be positive", domain.ErrInvalidConfig)
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("%w: status interval must be positive", domain.ErrInvalidConfig)
	}
	if c.Grace < 0 {
		return fmt.Errorf("%w: grace must not be negative", domain.ErrInvalidConfig)
	}
	if c.QueueLimit < 0 {
		return fmt.Errorf("%w: queue limit must not be negative", domain.ErrInvalidConfig)
	}
	if _, ok := app.ParseOverflowPolicy(c.OverflowPolicy); !ok {
		return fmt.Errorf("%w: unknown overflow policy %q", domain.ErrInvalidConfig, c.OverflowPolicy)
	}
	return nil
}

func (c *Config) sessionConfig(clock func() time.Time) app.SessionConfig {
	policy, _ := app.ParseOverflowPolicy(c.OverflowPolicy)
	return app.SessionConfig{
		Port:          c.Port,
		Baud:          c.Baud,
		FlushInterval: c.FlushInterval,
		FlushOnStop:   c.FlushOnStop,
		Grace:         c.Grace,
		QueueLimit:    c.QueueLimit,
		Overflow:      policy,
		Clock:         clock,
	}
}
