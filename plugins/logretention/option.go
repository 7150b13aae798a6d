package logretention

import "github.com/bft-labs/canlog/pkg/canlog"

// WithLogRetention returns a canlog Option that enables log retention.
//
// Usage:
//
//	c, err := canlog.New(cfg,
//	    logretention.WithLogRetention(logretention.Config{
//	        CheckInterval: 10 * time.Minute,
//	        HighWatermark: 4 << 30, // 4 GiB
//	        LowWatermark:  3 << 30, // 3 GiB
//	    }),
//	)
func WithLogRetention(cfg Config) canlog.Option {
	return canlog.WithPlugin(New(cfg))
}

// WithDefaultLogRetention enables log retention with DefaultConfig.
func WithDefaultLogRetention() canlog.Option {
	return WithLogRetention(DefaultConfig())
}
