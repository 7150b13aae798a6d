// Package configwatcher watches the capture's configuration files and
// reports when one of them changes, so the caller can reload and restart
// the capture.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/canlog/pkg/log"
)

// Watcher monitors a set of files through their parent directories.
// Editors often replace a file instead of writing it in place, which a
// watch on the file itself would miss.
type Watcher struct {
	mu sync.Mutex

	debounceDelay time.Duration
	files         map[string]bool
	dirs          []string
	onChange      func(path string)
	logger        log.Logger
	debounce      *time.Timer
}

// Config holds configuration options for the watcher.
type Config struct {
	// DebounceDelay is the quiet period after the last change before
	// OnChange is called.
	// Default: 500 milliseconds
	DebounceDelay time.Duration

	// Files are the paths to watch. Paths that do not exist yet are
	// reported once they are created.
	Files []string

	// OnChange is called with the path of the last changed file.
	OnChange func(path string)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 500 * time.Millisecond}
}

// New creates a watcher. A nil logger discards output.
func New(cfg Config, logger log.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	w := &Watcher{
		debounceDelay: cfg.DebounceDelay,
		files:         make(map[string]bool),
		onChange:      cfg.OnChange,
		logger:        logger,
	}
	seen := make(map[string]bool)
	for _, f := range cfg.Files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = filepath.Clean(f)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// Run watches until ctx is cancelled. It returns an error only when the
// watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.files) == 0 {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	added := 0
	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("config watcher: cannot watch directory",
				log.String("dir", dir),
				log.Err(err))
			continue
		}
		added++
	}
	if added == 0 {
		return fmt.Errorf("watch config directories: none of %v could be watched", w.dirs)
	}

	w.logger.Info("config watcher started", log.Int("files", len(w.files)))
	defer w.stopDebounce()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleNotify(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) scheduleNotify(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		w.logger.Info("config file changed", log.String("file", path))
		if w.onChange != nil {
			w.onChange(path)
		}
	})
}

func (w *Watcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
