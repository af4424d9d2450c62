package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu      sync.RWMutex
	log     = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile *os.File
)

// InitLogging routes log output to the file at path. Debug messages are only
// written when debug is set. An empty path logs to stderr.
func InitLogging(debug bool, path string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	var f *os.File
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	}

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	return nil
}

// Close flushes and closes the log file, if any. Later calls are discarded.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	log = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debugf(format string, args ...any) {
	get().Debug(fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	get().Info(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	get().Warn(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	get().Error(fmt.Sprintf(format, args...))
}
