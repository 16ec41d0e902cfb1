// Package logger configures the process-wide slog logger: JSON records
// written to a rotating file, plus an in-memory tail of recent warnings
// and errors for the dashboard status bar.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls Init.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// Path is the log file. Empty means ~/.config/kpulse/kpulse.log.
	Path string
	// Writer, when set, replaces the rotating file.
	Writer io.Writer
}

var (
	mu      sync.RWMutex
	log     *slog.Logger
	rotator *lumberjack.Logger
	recent  *recentLog
	path    string
	debug   bool
)

// DefaultPath returns the default log file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "kpulse", "kpulse.log")
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Init installs the global logger and makes it the slog default.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var (
		w       io.Writer
		newRot  *lumberjack.Logger
		logPath string
	)
	if opts.Writer != nil {
		w = opts.Writer
	} else {
		logPath = opts.Path
		if logPath == "" {
			logPath = DefaultPath()
		}
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		newRot = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		}
		w = newRot
	}

	tail := newRecentLog(recentCapacity)
	handler := &captureHandler{
		inner:  slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
		recent: tail,
	}
	l := slog.New(handler)

	mu.Lock()
	if rotator != nil {
		_ = rotator.Close()
	}
	log = l
	rotator = newRot
	recent = tail
	path = logPath
	debug = level == slog.LevelDebug
	mu.Unlock()

	slog.SetDefault(l)
	return nil
}

// Close flushes and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
}

// Path returns the active log file, or "" when logging to a writer.
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return path
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		return log
	}
	return slog.Default()
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger carrying args on every record.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Counts returns the warnings and errors logged since the last reset.
func Counts() (warn, err int) {
	mu.RLock()
	tail := recent
	mu.RUnlock()
	if tail == nil {
		return 0, 0
	}
	return tail.counts()
}

// ResetCounts zeroes the warning and error counters.
func ResetCounts() {
	mu.RLock()
	tail := recent
	mu.RUnlock()
	if tail != nil {
		tail.reset()
	}
}

// Recent returns the retained WARN/ERROR entries, oldest first.
func Recent() []Entry {
	mu.RLock()
	tail := recent
	mu.RUnlock()
	if tail == nil {
		return nil
	}
	return tail.snapshot()
}

// IsDebugEnabled reports whether debug logging is active.
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}
