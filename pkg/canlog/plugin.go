package canlog

import "context"

// Plugin extends a capture with functionality that runs alongside it.
// Plugins are initialized in registration order by Start and shut down in
// reverse order when the capture stops or crashes.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. ctx is cancelled when the capture
	// stops. An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig is the capture context handed to plugins.
type PluginConfig struct {
	Port   string
	Baud   int
	LogDir string
	Logger Logger
}

// BasePlugin implements Plugin with no-ops.
type BasePlugin struct{}

func (BasePlugin) Name() string                                  { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
