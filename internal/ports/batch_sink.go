package ports

import "context"

// BatchSink persists serialized log records.
// Implementations append to durable storage (normally one CSV file per
// flush-time minute).
type BatchSink interface {
	// Append adds lines to the file called name, creating it if needed.
	// Either all lines are handed to storage or an error is returned;
	// the caller does not retry.
	Append(ctx context.Context, name string, lines []string) (string, error)
}
