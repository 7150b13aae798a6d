package domain

import "time"

// Counters is a point-in-time view of a capture session.
// The first three fields are the operator status readout; the rest are
// cumulative totals since the session started.
type Counters struct {
	Port            string `json:"port"`
	ByteQueueDepth  int    `json:"byte_queue"`
	FrameQueueDepth int    `json:"frame_queue"`

	BytesRead       uint64 `json:"bytes_read"`
	BytesSkipped    uint64 `json:"bytes_skipped"`
	BytesDropped    uint64 `json:"bytes_dropped"`
	FramesRecovered uint64 `json:"frames_recovered"`
	FramesWritten   uint64 `json:"frames_written"`
	FramesDropped   uint64 `json:"frames_dropped"`
	FilesWritten    uint64 `json:"files_written"`
}

// Status is the snapshot persisted for external status readers.
type Status struct {
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Counters
}
