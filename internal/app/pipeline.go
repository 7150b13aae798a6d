package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/canlog/internal/domain"
	"github.com/bft-labs/canlog/internal/ports"
	"github.com/bft-labs/canlog/pkg/log"
)

// DefaultGrace is how long Stop lets the stages wind down on their own
// before closing the serial connection under them.
const DefaultGrace = 500 * time.Millisecond

// SessionConfig contains configuration for one capture session.
type SessionConfig struct {
	Port string
	Baud int

	FlushInterval time.Duration
	FlushOnStop   bool

	// Grace bounds the cooperative part of Stop.
	Grace time.Duration

	// QueueLimit bounds both inter-stage queues; 0 means unbounded.
	QueueLimit int
	Overflow   OverflowPolicy

	// Clock overrides time.Now for the time base and file naming.
	Clock func() time.Time
}

// Session is one run of the acquisition pipeline: an open serial
// connection, a time base and the three stages connected by two queues.
// It is created by OpenSession and torn down by Stop; a new capture
// always gets a new Session.
type Session struct {
	config SessionConfig
	logger log.Logger

	src    ports.ByteSource
	tb     *TimeBase
	bytes  *Queue[domain.StampedByte]
	frames *Queue[domain.RecoveredFrame]

	ingestor *Ingestor
	sync     *Synchronizer
	writer   *BatchWriter

	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	closeOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
}

// OpenSession opens the serial port and starts the pipeline. An open
// failure is returned as a *domain.ConnectionError before any stage runs.
func OpenSession(
	ctx context.Context,
	config SessionConfig,
	opener ports.PortOpener,
	sink ports.BatchSink,
	logger log.Logger,
	emitter BatchEventEmitter,
) (*Session, error) {
	if config.Grace <= 0 {
		config.Grace = DefaultGrace
	}

	src, err := opener(config.Port, config.Baud)
	if err != nil {
		logger.Error("failed to open serial port",
			log.String("port", config.Port),
			log.Int("baud", config.Baud),
			log.Err(err),
		)
		return nil, &domain.ConnectionError{Port: config.Port, Op: "open", Err: err}
	}

	s := &Session{
		config: config,
		logger: logger,
		src:    src,
		tb:     StartTimeBase(config.Clock),
		bytes:  NewQueue[domain.StampedByte](config.QueueLimit, config.Overflow),
		frames: NewQueue[domain.RecoveredFrame](config.QueueLimit, config.Overflow),
		done:   make(chan struct{}),
	}
	s.ingestor = NewIngestor(config.Port, src, s.tb, s.bytes, logger)
	s.sync = NewSynchronizer(s.tb)
	s.writer = NewBatchWriter(WriterConfig{
		FlushInterval: config.FlushInterval,
		FlushOnStop:   config.FlushOnStop,
	}, s.frames, sink, config.Clock, logger, emitter)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.ingestor.Run(gctx) })
	g.Go(func() error { return s.sync.Run(gctx, s.bytes, s.frames, logger) })
	g.Go(func() error { return s.writer.Run(gctx) })

	go func() {
		err := g.Wait()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
		s.err = err
		close(s.done)
	}()

	logger.Info("capture session started",
		log.String("port", config.Port),
		log.Int("baud", config.Baud),
		log.Time("start", s.tb.StartWallClock()),
	)
	return s, nil
}

// Done is closed once every stage has returned, either because Stop was
// called or because the connection failed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the session, if any. It is only
// meaningful after Done is closed; a stopped session reports nil.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stop cancels the stages, waits up to Grace for them, closes the serial
// connection, then joins the remaining stages within ShutdownTimeout and
// halts the time base. Frames still queued are discarded unless
// FlushOnStop is set. Stop is idempotent.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()

		select {
		case <-s.done:
		case <-time.After(s.config.Grace):
			s.logger.Debug("stages still running after grace period, closing port",
				log.Duration("grace", s.config.Grace),
			)
		}

		s.closeSource()

		select {
		case <-s.done:
		case <-time.After(ShutdownTimeout):
			s.logger.Warn("shutdown timeout, abandoning pipeline stages",
				log.Duration("timeout", ShutdownTimeout),
			)
			s.stopErr = domain.ErrShutdownTimeout
		}

		s.tb.Stop()

		c := s.Counters()
		s.logger.Info("capture session stopped",
			log.String("port", s.config.Port),
			log.Uint64("frames_written", c.FramesWritten),
			log.Int("frames_discarded", c.FrameQueueDepth),
		)
	})
	return s.stopErr
}

func (s *Session) closeSource() {
	s.closeOnce.Do(func() {
		if err := s.src.Close(); err != nil {
			s.logger.Warn("failed to close serial port",
				log.String("port", s.config.Port),
				log.Err(err),
			)
		}
	})
}

// StartedAt returns the wall-clock instant the session's time base started.
func (s *Session) StartedAt() time.Time {
	return s.tb.StartWallClock()
}

// Counters returns a snapshot of queue depths and stage totals.
func (s *Session) Counters() domain.Counters {
	return domain.Counters{
		Port:            s.config.Port,
		ByteQueueDepth:  s.bytes.Len(),
		FrameQueueDepth: s.frames.Len(),
		BytesRead:       s.ingestor.BytesRead(),
		BytesSkipped:    s.sync.Skipped(),
		BytesDropped:    s.bytes.Dropped(),
		FramesRecovered: s.sync.Frames(),
		FramesWritten:   s.writer.FramesWritten(),
		FramesDropped:   s.writer.FramesDropped() + s.frames.Dropped(),
		FilesWritten:    s.writer.FilesWritten(),
	}
}
