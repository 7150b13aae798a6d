package canlog

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/canlog/internal/adapters/fs"
	"github.com/bft-labs/canlog/internal/app"
	"github.com/bft-labs/canlog/internal/domain"
	"github.com/bft-labs/canlog/internal/ports"
	"github.com/bft-labs/canlog/pkg/log"
)

// Capture is a CAN serial logger that can be embedded in other applications.
// Use New() to create an instance, then Start() to begin acquisition.
type Capture struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	logger    Logger
	sink      ports.BatchSink
	status    ports.StatusRepository
	plugins   []Plugin

	mu      sync.RWMutex
	session *app.Session
	run     *run
}

// run is the bookkeeping of one Start..Stop (or crash) cycle.
type run struct {
	done         chan struct{}
	err          error
	shutdownOnce sync.Once
	initialized  []Plugin
}

// New creates a new Capture with the given configuration.
// The instance is created in StateStopped; call Start() to begin acquisition.
// Returns an error wrapping ErrInvalidConfig if configuration is invalid.
func New(cfg Config, opts ...Option) (*Capture, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	sink := o.sink
	if sink == nil {
		sink = fs.NewCSVSink(cfg.LogDir)
	}

	var status ports.StatusRepository
	if o.statusFile {
		dir := o.statusDir
		if dir == "" {
			dir = cfg.LogDir
		}
		status = fs.NewStatusFileRepository(dir)
	}

	return &Capture{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(o.logger, emitter),
		emitter:   emitter,
		logger:    o.logger,
		sink:      sink,
		status:    status,
		plugins:   o.plugins,
	}, nil
}

// Start opens the serial port and starts the pipeline in the background.
// Plugins are initialized first. A port that cannot be opened is reported
// as a *ConnectionError before any stage runs, and the capture is left in
// StateCrashed. Returns ErrAlreadyRunning if already started.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if c.run != nil {
		// A previous run may still be unwinding after a crash.
		<-c.run.done
	}

	if err := c.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.lifecycle.SetCancel(cancel)
	r := &run{done: make(chan struct{})}

	pluginCfg := PluginConfig{
		Port:   c.config.Port,
		Baud:   c.config.Baud,
		LogDir: c.config.LogDir,
		Logger: c.logger,
	}
	for _, p := range c.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			c.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			c.shutdownPlugins(r)
			r.err = err
			close(r.done)
			c.run = r
			_ = c.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		r.initialized = append(r.initialized, p)
		c.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	session, err := app.OpenSession(runCtx, c.config.sessionConfig(c.opts.clock), c.opts.opener, c.sink, c.logger, c.emitter)
	if err != nil {
		cancel()
		c.emitter.onConnectionError(err)
		c.shutdownPlugins(r)
		r.err = err
		close(r.done)
		c.run = r
		c.session = nil
		_ = c.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		c.saveStatus(context.Background(), nil)
		return err
	}
	c.session = session
	c.run = r

	if err := c.lifecycle.TransitionTo(app.StateRunning, "serial port open"); err != nil {
		c.logger.Error("failed to transition to running", log.Err(err))
	}

	c.lifecycle.AddWorker()
	go func() {
		defer c.lifecycle.WorkerDone()
		c.reportStatus(runCtx, session)
	}()

	go c.supervise(runCtx, session, r)

	return nil
}

// supervise waits for the session to end. A session ending on its own
// means the serial link was lost: the capture is torn down and marked
// crashed. A cancelled run context means Stop is in charge.
func (c *Capture) supervise(ctx context.Context, session *app.Session, r *run) {
	defer close(r.done)

	select {
	case <-ctx.Done():
		return
	case <-session.Done():
	}

	err := session.Err()
	if err == nil {
		// Stages only return without error on cancellation.
		return
	}
	if c.lifecycle.State() != app.StateRunning {
		// Stop is already tearing down.
		return
	}

	r.err = err
	c.logger.Error("capture lost serial connection", log.Err(err))
	c.emitter.onConnectionError(err)

	_ = session.Stop()
	c.lifecycle.Cancel()
	if werr := c.lifecycle.WaitWithTimeout(app.ShutdownTimeout); werr != nil {
		c.logger.Warn("status reporter did not exit", log.Err(werr))
	}
	c.shutdownPlugins(r)

	_ = c.lifecycle.TransitionTo(app.StateCrashed, err.Error())
	c.saveStatus(context.Background(), session)
}

// Stop shuts the pipeline down: the stages are cancelled, the serial port
// is closed after the grace period, and the stages are joined within
// ShutdownTimeout. Frames still queued are discarded unless FlushOnStop is
// set. Plugins are shut down in reverse order.
// Returns nil on clean shutdown, ErrShutdownTimeout if a stage did not exit
// and ErrNotRunning if the capture is not running.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.lifecycle.CanStop() {
		c.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := c.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		c.mu.Unlock()
		return err
	}
	session := c.session
	r := c.run
	c.mu.Unlock()

	err := session.Stop()

	c.lifecycle.Cancel()
	if werr := c.lifecycle.WaitWithTimeout(app.ShutdownTimeout); werr != nil && err == nil {
		err = werr
	}
	<-r.done

	c.shutdownPlugins(r)

	switch {
	case err != nil:
		_ = c.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	case session.Err() != nil:
		c.mu.Lock()
		r.err = session.Err()
		c.mu.Unlock()
		_ = c.lifecycle.TransitionTo(app.StateCrashed, session.Err().Error())
	default:
		_ = c.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	c.saveStatus(context.Background(), session)

	return err
}

// shutdownPlugins shuts down the plugins initialized by r in reverse order,
// at most once per run.
func (c *Capture) shutdownPlugins(r *run) {
	r.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		for i := len(r.initialized) - 1; i >= 0; i-- {
			p := r.initialized[i]
			if err := p.Shutdown(ctx); err != nil {
				c.logger.Error("plugin shutdown failed",
					log.String("plugin", p.Name()),
					log.Err(err))
			} else {
				c.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
			}
		}
	})
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (c *Capture) Status() State {
	return convertState(c.lifecycle.State())
}

// Counters returns the port, the depth of both queues and the totals of the
// current session, or of the last one once stopped.
func (c *Capture) Counters() Counters {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return Counters{Port: c.config.Port}
	}
	return session.Counters()
}

// Done returns a channel closed when the current run ends, either through
// Stop or because the serial link was lost. It returns nil before the
// first Start.
func (c *Capture) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return nil
	}
	return c.run.done
}

// Err returns the error that ended the last run: the *ConnectionError of a
// lost link, a plugin initialization error, or nil after a clean Stop.
func (c *Capture) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return nil
	}
	select {
	case <-c.run.done:
		return c.run.err
	default:
		return nil
	}
}
