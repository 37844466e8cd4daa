package delivery

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
)

// FIFOWriter delivers transcription lines to a named pipe. The pipe is
// opened per write so the service keeps running across reader restarts.
// Safe for concurrent use; each Write opens its own descriptor.
type FIFOWriter struct {
	path   string
	logger *slog.Logger
}

// NewFIFOWriter creates a writer targeting the pipe at path. The pipe does
// not need to exist yet; each write attempt reports its own error.
func NewFIFOWriter(path string, logger *slog.Logger) (*FIFOWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("pipe path cannot be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FIFOWriter{path: path, logger: logger}, nil
}

// Write delivers one transcription as a single line. Opening the pipe
// non-blocking means a FIFO with no attached reader fails immediately with
// ENXIO instead of stalling the export goroutine; the line is dropped and
// logged.
func (w *FIFOWriter) Write(line string) error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		w.logger.Warn("Could not open delivery pipe, dropping transcription",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to open pipe %s: %w", w.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		w.logger.Warn("Failed to write to delivery pipe",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to write to pipe %s: %w", w.path, err)
	}

	return nil
}

// Path returns the configured pipe path.
func (w *FIFOWriter) Path() string {
	return w.path
}
