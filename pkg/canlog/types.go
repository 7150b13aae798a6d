package canlog

import (
	"github.com/bft-labs/canlog/internal/app"
	"github.com/bft-labs/canlog/internal/domain"
	"github.com/bft-labs/canlog/internal/ports"
	"github.com/bft-labs/canlog/pkg/log"
)

// Protocol constants of the serial link.
const (
	PacketSize = domain.PacketSize
	Sync0      = domain.Sync0
	Sync1      = domain.Sync1
)

// Errors returned by the public API. Check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

type (
	// ConnectionError reports a serial open or read failure. Match it with
	// errors.As.
	ConnectionError = domain.ConnectionError

	// PersistenceError reports a lost batch.
	PersistenceError = domain.PersistenceError

	// Counters is a snapshot of queue depths and stage totals.
	Counters = domain.Counters

	// Status is the snapshot written to the status file.
	Status = domain.Status

	// RecoveredFrame is one frame with its capture timestamp.
	RecoveredFrame = domain.RecoveredFrame
)

type (
	// Logger is the structured logger used by the capture.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field

	// ByteSource is an open serial connection.
	ByteSource = ports.ByteSource

	// PortOpener opens a ByteSource for a port name and baud rate.
	PortOpener = ports.PortOpener

	// LogSink appends serialized records to a named log file.
	LogSink = ports.BatchSink
)

// State represents the lifecycle state of a capture.
type State int

const (
	// StateStopped indicates the capture is not running.
	StateStopped State = iota
	// StateStarting indicates plugins are initializing and the port is opening.
	StateStarting
	// StateRunning indicates the pipeline is acquiring.
	StateRunning
	// StateStopping indicates Stop is tearing the pipeline down.
	StateStopping
	// StateCrashed indicates the serial link was lost or shutdown failed.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
