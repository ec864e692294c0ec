// Package logging provides the repository's operational log and the
// append-only error trail.
//
// Operational events go to app.log through a slog text handler; the
// trail in error_log.txt records every surfaced error with a UTC
// timestamp and author tag.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AppLogName is the operational log file inside the repository root.
const AppLogName = "app.log"

// ErrorLogName is the append-only error trail file.
const ErrorLogName = "error_log.txt"

// Logger couples the slog application log with the error trail.
type Logger struct {
	*slog.Logger

	mu        sync.Mutex
	appFile   *os.File
	errorPath string
}

// Open creates a Logger rooted at the repository directory. When enabled
// is false the application log is discarded but the error trail is still
// written; the trail is not optional.
func Open(root string, enabled bool) (*Logger, error) {
	l := &Logger{
		errorPath: filepath.Join(root, ErrorLogName),
	}

	var w io.Writer = io.Discard
	if enabled {
		f, err := os.OpenFile(filepath.Join(root, AppLogName),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open app log: %w", err)
		}
		l.appFile = f
		w = f
	}
	l.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return l, nil
}

// Trail appends one line to error_log.txt:
//
//	2026-01-02 15:04:05 [author] op path: message
//
// Trail failures are deliberately not propagated; the trail must never
// turn a recoverable condition into a fatal one.
func (l *Logger) Trail(author, op, path string, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ferr := os.OpenFile(l.errorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if ferr != nil {
		return
	}
	defer f.Close()

	ts := time.Now().UTC().Format("2006-01-02 15:04:05")
	if author == "" {
		author = "unknown"
	}
	fmt.Fprintf(f, "%s [%s] %s %s: %v\n", ts, author, op, path, err)
}

// Close releases the application log file, if one is open.
func (l *Logger) Close() error {
	if l.appFile != nil {
		return l.appFile.Close()
	}
	return nil
}
