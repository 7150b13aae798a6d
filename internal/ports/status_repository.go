package ports

import (
	"context"

	"github.com/bft-labs/canlog/internal/domain"
)

// StatusRepository publishes the capture status for external readers.
// Implementations persist the snapshot atomically.
type StatusRepository interface {
	// Load retrieves the last saved status.
	// Returns an empty status and nil error if none has been saved.
	Load(ctx context.Context) (domain.Status, error)

	// Save replaces the stored status.
	Save(ctx context.Context, status domain.Status) error
}
