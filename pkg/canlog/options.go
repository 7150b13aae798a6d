package canlog

import (
	"time"

	"github.com/bft-labs/canlog/internal/adapters/serial"
	"github.com/bft-labs/canlog/pkg/log"
)

// Option configures optional behavior of a Capture.
type Option func(*options)

// options holds the optional configuration for a Capture.
type options struct {
	logger       Logger
	eventHandler EventHandler
	opener       PortOpener
	sink         LogSink
	clock        func() time.Time
	plugins      []Plugin
	statusFile   bool
	statusDir    string
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		opener: serial.Open,
		clock:  time.Now,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for capture events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPortOpener replaces the serial port opener. Tests use it to feed
// the pipeline from memory.
func WithPortOpener(opener PortOpener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithLogSink replaces the CSV file sink in Config.LogDir.
func WithLogSink(sink LogSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithClock replaces time.Now for the time base and log file naming.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithPlugin registers a plugin to be initialized when the capture starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithStatusFile writes status.json into dir every StatusInterval and on
// every state change. An empty dir selects Config.LogDir.
func WithStatusFile(dir string) Option {
	return func(o *options) {
		o.statusFile = true
		o.statusDir = dir
	}
}
