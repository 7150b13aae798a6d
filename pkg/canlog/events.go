package canlog

import (
	"errors"
	"time"

	"github.com/bft-labs/canlog/internal/app"
	"github.com/bft-labs/canlog/internal/domain"
)

// EventHandler receives notifications about a capture.
// Methods are called synchronously from the pipeline goroutines and must
// return quickly. Embed [BaseEventHandler] to implement only some of them.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnBatchWritten(BatchWrittenEvent)
	OnPersistenceError(PersistenceErrorEvent)
	OnConnectionError(ConnectionErrorEvent)
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchWrittenEvent is emitted after a batch was appended to a log file.
type BatchWrittenEvent struct {
	Path     string
	Frames   int
	First    time.Time
	Last     time.Time
	Duration time.Duration
}

// PersistenceErrorEvent is emitted when a batch could not be appended.
// Its frames are lost.
type PersistenceErrorEvent struct {
	Path   string
	Frames int
	Error  error
}

// ConnectionErrorEvent is emitted when the serial port cannot be opened or
// a read fails.
type ConnectionErrorEvent struct {
	Port  string
	Op    string
	Error error
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)           {}
func (BaseEventHandler) OnBatchWritten(BatchWrittenEvent)         {}
func (BaseEventHandler) OnPersistenceError(PersistenceErrorEvent) {}
func (BaseEventHandler) OnConnectionError(ConnectionErrorEvent)   {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBatchWritten(path string, frames int, first, last time.Time, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchWritten(BatchWrittenEvent{
		Path:     path,
		Frames:   frames,
		First:    first,
		Last:     last,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnPersistenceError(err *domain.PersistenceError) {
	if e.handler == nil {
		return
	}
	e.handler.OnPersistenceError(PersistenceErrorEvent{
		Path:   err.Path,
		Frames: err.Frames,
		Error:  err,
	})
}

func (e *eventEmitterWrapper) onConnectionError(err error) {
	if e.handler == nil {
		return
	}
	ev := ConnectionErrorEvent{Error: err}
	var connErr *domain.ConnectionError
	if errors.As(err, &connErr) {
		ev.Port = connErr.Port
		ev.Op = connErr.Op
	}
	e.handler.OnConnectionError(ev)
}
