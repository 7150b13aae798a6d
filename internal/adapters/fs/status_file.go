package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/canlog/internal/domain"
)

// StatusFileName is the status snapshot written into the log directory.
const StatusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a repository writing into dir.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load reads the last saved status.
// Returns an empty status and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Status{}, nil
		}
		return domain.Status{}, err
	}

	var status domain.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.Status{}, err
	}
	return status, nil
}

// Save replaces the status file atomically (temp file, then rename).
func (r *StatusFileRepository) Save(ctx context.Context, status domain.Status) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, StatusFileName)
}
