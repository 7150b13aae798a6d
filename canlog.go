// Package canlog records a CAN bus serial link to per-minute CSV files.
//
// Example usage:
//
//	cfg := canlog.DefaultConfig()
//	cfg.Port = "/dev/ttyUSB0"
//	cfg.Baud = 921600
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := canlog.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control (restart, counters, events) use the capture package
// github.com/bft-labs/canlog/pkg/canlog directly.
package canlog

import (
	"context"
	"errors"

	capture "github.com/bft-labs/canlog/pkg/canlog"
)

// Config holds the configuration of a capture.
type Config = capture.Config

// Option configures optional behavior of a capture.
type Option = capture.Option

// DefaultConfig returns a Config with default values on port COM3.
func DefaultConfig() Config {
	cfg := Config{Port: "COM3"}
	cfg.SetDefaults()
	return cfg
}

// Run captures until ctx is cancelled or the serial link is lost.
// It returns nil after a clean stop, the *ConnectionError that ended the
// capture, or the error of a failed start or stop.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	c, err := capture.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-c.Done():
		if err := c.Err(); err != nil {
			return err
		}
	}

	if err := c.Stop(); err != nil && !errors.Is(err, capture.ErrNotRunning) {
		return err
	}
	return nil
}
