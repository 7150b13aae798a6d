// Package logretention bounds the disk usage of a capture's log directory.
// When enabled, it periodically removes the oldest CAN_*.csv files once the
// directory grows past a high watermark.
package logretention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/canlog/pkg/canlog"
	"github.com/bft-labs/canlog/pkg/log"
)

// Plugin implements log retention.
// The newest log file is never removed: the batch writer may still be
// appending to it.
type Plugin struct {
	mu sync.RWMutex

	checkInterval time.Duration
	highWatermark int64
	lowWatermark  int64

	logDir string
	logger canlog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the log retention plugin.
type Config struct {
	// CheckInterval is how often to check the log directory size.
	// Default: 1 hour
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which cleanup begins.
	// Default: 10 GiB
	HighWatermark int64

	// LowWatermark is the target size in bytes after cleanup.
	// Default: three quarters of HighWatermark
	LowWatermark int64
}

const (
	defaultCheckInterval = time.Hour
	defaultHighWatermark = 10 << 30
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: defaultCheckInterval,
		HighWatermark: defaultHighWatermark,
		LowWatermark:  defaultHighWatermark / 4 * 3,
	}
}

// New creates a new log retention plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = defaultHighWatermark
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark > cfg.HighWatermark {
		cfg.LowWatermark = cfg.HighWatermark / 4 * 3
	}

	return &Plugin{
		checkInterval: cfg.CheckInterval,
		highWatermark: cfg.HighWatermark,
		lowWatermark:  cfg.LowWatermark,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "logretention"
}

// Initialize starts the retention loop over cfg.LogDir.
func (p *Plugin) Initialize(ctx context.Context, cfg canlog.PluginConfig) error {
	p.mu.Lock()
	p.logDir = cfg.LogDir
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	if p.logDir == "" {
		p.logger.Warn("log retention disabled: no log directory configured")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("log retention plugin initialized",
		log.String("log_dir", p.logDir),
		log.String("high_watermark", formatBytes(p.highWatermark)),
		log.String("low_watermark", formatBytes(p.lowWatermark)))

	p.wg.Add(1)
	go p.loop(loopCtx)

	return nil
}

// Shutdown stops the retention loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	p.CleanupOnce(ctx)

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CleanupOnce(ctx)
		}
	}
}

// CleanupOnce removes the oldest log files until the directory is at or
// below the low watermark, if it is above the high watermark. It returns
// the number of bytes freed.
func (p *Plugin) CleanupOnce(ctx context.Context) int64 {
	p.mu.RLock()
	dir := p.logDir
	logger := p.logger
	p.mu.RUnlock()

	files, err := logFiles(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("log retention: list failed", log.Err(err))
		}
		return 0
	}

	var curSize int64
	for _, f := range files {
		curSize += f.size
	}
	if curSize <= p.highWatermark || len(files) < 2 {
		return 0
	}

	var freed int64
	removed := 0
	// files[len(files)-1] is the active file.
	for _, f := range files[:len(files)-1] {
		if ctx.Err() != nil {
			break
		}
		if curSize <= p.lowWatermark {
			break
		}
		if err := os.Remove(f.path); err != nil {
			logger.Error("log retention: remove failed",
				log.String("file", f.path),
				log.Err(err))
			continue
		}
		curSize -= f.size
		freed += f.size
		removed++
	}

	if removed > 0 {
		logger.Info("log retention completed",
			log.Int("files_removed", removed),
			log.String("freed", formatBytes(freed)),
			log.String("size", formatBytes(curSize)))
	}
	return freed
}

type logFile struct {
	path string
	size int64
}

// logFiles returns the CAN_*.csv files of dir, oldest first. The names
// embed the minute as yyyyMMdd_HHmm, so name order is time order.
func logFiles(dir string) ([]logFile, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	sizes := make(map[string]int64)
	for _, e := range ents {
		if e.IsDir() || !isLogFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		names = append(names, e.Name())
		sizes[e.Name()] = info.Size()
	}
	sort.Strings(names)

	out := make([]logFile, 0, len(names))
	for _, name := range names {
		out = append(out, logFile{path: filepath.Join(dir, name), size: sizes[name]})
	}
	return out, nil
}

func isLogFile(name string) bool {
	return len(name) == len("CAN_20060102_1504.csv") &&
		strings.HasPrefix(name, "CAN_") &&
		strings.HasSuffix(name, ".csv")
}

func formatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
	)

	fb := float64(b)
	switch {
	case fb >= GB:
		return fmt.Sprintf("%.2fGiB", fb/GB)
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}

// Ensure Plugin implements canlog.Plugin.
var _ canlog.Plugin = (*Plugin)(nil)
