// Package fs implements the file-system adapters: the CSV log sink and the
// status snapshot file.
package fs

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir is the log directory relative to the working directory.
const DefaultLogDir = "Logs"

// CSVSink implements ports.BatchSink by appending lines to files in dir.
type CSVSink struct {
	dir string
}

// NewCSVSink creates a sink writing into dir.
func NewCSVSink(dir string) *CSVSink {
	if dir == "" {
		dir = DefaultLogDir
	}
	return &CSVSink{dir: dir}
}

// Dir returns the log directory.
func (s *CSVSink) Dir() string {
	return s.dir
}

// Append writes lines to dir/name, one per line, creating the directory and
// the file as needed. The file is closed before Append returns.
func (s *CSVSink) Append(ctx context.Context, name string, lines []string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := ctx.Err(); err != nil {
		return path, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return path, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}

	w := bufio.NewWriterSize(f, 64*1024)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return path, err
	}
	return path, f.Close()
}
