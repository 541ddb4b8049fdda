package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// Logger wraps a zerolog logger with a level gate.
type Logger struct {
	level   Level
	zl      zerolog.Logger
	enabled bool
	closer  io.Closer
}

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

// Init initializes the logger. The log file receives JSON lines, the console
// receives human-readable output.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		swap(&Logger{enabled: false})
		return nil
	}

	level := parseLevel(levelStr)
	var writers []io.Writer
	var closer io.Closer

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"})
	}

	swap(&Logger{
		level:   level,
		zl:      zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger(),
		enabled: true,
		closer:  closer,
	})
	return nil
}

// InitWriter routes log output to w as JSON lines. Used by tests.
func InitWriter(w io.Writer, levelStr string) {
	swap(&Logger{
		level:   parseLevel(levelStr),
		zl:      zerolog.New(w).With().Timestamp().Logger(),
		enabled: true,
	})
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil || globalLogger.closer == nil {
		return nil
	}
	err := globalLogger.closer.Close()
	globalLogger.closer = nil
	return err
}

func swap(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil && globalLogger.closer != nil {
		globalLogger.closer.Close()
	}
	globalLogger = l
}

func parseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func event(level Level) *zerolog.Event {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil || !l.enabled || l.level > level {
		return nil
	}
	switch level {
	case Debug:
		return l.zl.Debug()
	case Info:
		return l.zl.Info()
	case Warn:
		return l.zl.Warn()
	default:
		return l.zl.Error()
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	if e := event(Debug); e != nil {
		e.Msgf(format, args...)
	}
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	if e := event(Info); e != nil {
		e.Msgf(format, args...)
	}
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	if e := event(Warn); e != nil {
		e.Msgf(format, args...)
	}
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	if e := event(Error); e != nil {
		e.Msgf(format, args...)
	}
}

// Event returns a structured event at level, or nil when the level is
// filtered out. zerolog events are nil-safe, so callers may chain directly.
func Event(level Level) *zerolog.Event {
	return event(level)
}
