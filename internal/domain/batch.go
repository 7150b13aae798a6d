package domain

import "time"

// LogBatch holds the log records accumulated since the last flush.
// It is owned by the batch writer and reset after every flush attempt.
type LogBatch struct {
	// Lines contains one serialized record per frame, in arrival order.
	Lines []string

	// First and Last are the timestamps of the oldest and newest frame.
	First time.Time
	Last  time.Time
}

// NewLogBatch creates a new empty batch.
func NewLogBatch() *LogBatch {
	return &LogBatch{
		Lines: make([]string, 0),
	}
}

// Add serializes a frame and appends it to the batch.
func (b *LogBatch) Add(f RecoveredFrame) {
	if len(b.Lines) == 0 {
		b.First = f.Timestamp
	}
	b.Last = f.Timestamp
	b.Lines = append(b.Lines, FormatRecord(f))
}

// Size returns the number of records in the batch.
func (b *LogBatch) Size() int {
	return len(b.Lines)
}

// Empty returns true if the batch has no records.
func (b *LogBatch) Empty() bool {
	return len(b.Lines) == 0
}

// Reset clears the batch for reuse.
func (b *LogBatch) Reset() {
	b.Lines = b.Lines[:0]
	b.First = time.Time{}
	b.Last = time.Time{}
}
