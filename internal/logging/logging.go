// Package logging builds the application logger. The TUI owns the
// terminal, so log output goes to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nhle/kanban-sync/internal/model"
)

const prefix = "kanban"

// ParseLevel maps a config level name to a log level. Empty means info.
func ParseLevel(s string) (log.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// NewWriter returns a text logger writing to w.
func NewWriter(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       log.TextFormatter,
		ReportTimestamp: true,
		Prefix:          prefix,
	}), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New opens the log file named by cfg, creating its directory, and
// returns a logger appending to it. Without a file the logger discards
// everything. The returned closer releases the file.
func New(cfg model.LogConfig) (*log.Logger, io.Closer, error) {
	if cfg.File == "" {
		l, err := NewWriter(io.Discard, cfg.Level)
		return l, nopCloser{}, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	l, err := NewWriter(f, cfg.Level)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return l, f, nil
}
