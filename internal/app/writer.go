package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bft-labs/canlog/internal/domain"
	"github.com/bft-labs/canlog/internal/ports"
	"github.com/bft-labs/canlog/pkg/log"
)

// DefaultFlushInterval is the period between two batch flushes.
const DefaultFlushInterval = 60 * time.Second

// WriterConfig contains configuration for the batch writer.
type WriterConfig struct {
	// FlushInterval is the period between flushes.
	FlushInterval time.Duration

	// FlushOnStop writes whatever is queued when the writer is cancelled.
	// When false, frames still queued at stop are lost.
	FlushOnStop bool
}

// BatchEventEmitter is called after every non-empty flush attempt.
type BatchEventEmitter interface {
	OnBatchWritten(path string, frames int, first, last time.Time, duration time.Duration)
	OnPersistenceError(err *domain.PersistenceError)
}

// BatchWriter drains the frame queue on a fixed period and appends the
// serialized records to the file of the current wall-clock minute.
type BatchWriter struct {
	config  WriterConfig
	in      *Queue[domain.RecoveredFrame]
	sink    ports.BatchSink
	clock   func() time.Time
	logger  log.Logger
	emitter BatchEventEmitter
	batch   *domain.LogBatch

	framesWritten atomic.Uint64
	framesDropped atomic.Uint64
	filesWritten  atomic.Uint64
}

// NewBatchWriter creates a writer. A nil clock selects time.Now.
func NewBatchWriter(config WriterConfig, in *Queue[domain.RecoveredFrame], sink ports.BatchSink, clock func() time.Time, logger log.Logger, emitter BatchEventEmitter) *BatchWriter {
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if clock == nil {
		clock = time.Now
	}
	return &BatchWriter{
		config:  config,
		in:      in,
		sink:    sink,
		clock:   clock,
		logger:  logger,
		emitter: emitter,
		batch:   domain.NewLogBatch(),
	}
}

// Run flushes every FlushInterval until ctx is done. The wait between
// flushes is cancellable. Persistence failures are reported and the batch
// is discarded; Run keeps going with the next period.
func (w *BatchWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if w.config.FlushOnStop {
				// The session context is gone; the final append must not be
				// cancelled with it.
				w.Flush(context.WithoutCancel(ctx))
			}
			return ctx.Err()
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush drains the queue into a batch and appends it. It returns the
// number of records handed to the sink; an empty queue performs no I/O.
func (w *BatchWriter) Flush(ctx context.Context) int {
	var frames []domain.RecoveredFrame
	frames = w.in.Drain(frames)
	if len(frames) == 0 {
		return 0
	}

	w.batch.Reset()
	for _, f := range frames {
		w.batch.Add(f)
	}

	name := domain.LogFileName(w.clock())
	start := time.Now()
	path, err := w.sink.Append(ctx, name, w.batch.Lines)
	duration := time.Since(start)

	size := w.batch.Size()
	if err != nil {
		perr := &domain.PersistenceError{Path: name, Frames: size, Err: err}
		if path != "" {
			perr.Path = path
		}
		w.framesDropped.Add(uint64(size))
		w.logger.Error("batch append failed, records dropped",
			log.String("file", perr.Path),
			log.Int("frames", size),
			log.Err(err),
		)
		if w.emitter != nil {
			w.emitter.OnPersistenceError(perr)
		}
		w.batch.Reset()
		return 0
	}

	w.framesWritten.Add(uint64(size))
	w.filesWritten.Add(1)
	w.logger.Info("batch written",
		log.String("file", path),
		log.Int("frames", size),
		log.Duration("duration", duration),
	)
	if w.emitter != nil {
		w.emitter.OnBatchWritten(path, size, w.batch.First, w.batch.Last, duration)
	}
	w.batch.Reset()
	return size
}

// FramesWritten returns the number of records appended successfully.
func (w *BatchWriter) FramesWritten() uint64 {
	return w.framesWritten.Load()
}

// FramesDropped returns the number of records lost to append failures.
func (w *BatchWriter) FramesDropped() uint64 {
	return w.framesDropped.Load()
}

// FilesWritten returns the number of successful appends.
func (w *BatchWriter) FilesWritten() uint64 {
	return w.filesWritten.Load()
}
