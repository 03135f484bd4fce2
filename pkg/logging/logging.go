package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString parses a level name as written in config files.
// Unknown names fall back to LevelInfo.
func LevelFromString(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LogEntry is a log record held back while output is suspended.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Subsystem string
	Message   string
	Err       error
}

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
	suspended     bool
	held          []LogEntry
)

// Init initializes the logger. It should be called once at startup; calling
// it again replaces the output.
func Init(level LogLevel, output io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	defaultLogger = slog.New(slog.NewTextHandler(output, opts))
	slog.SetDefault(defaultLogger)
}

// Suspend holds back log output, typically while a terminal dialog owns the
// screen. Entries are replayed in order by Resume.
func Suspend() {
	mu.Lock()
	defer mu.Unlock()
	suspended = true
}

// Resume writes out everything logged since Suspend and returns to direct
// output.
func Resume() {
	mu.Lock()
	pending := held
	held = nil
	suspended = false
	logger := defaultLogger
	mu.Unlock()

	for _, e := range pending {
		emit(logger, e)
	}
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Subsystem: subsystem,
		Message:   msg,
		Err:       err,
	}

	mu.Lock()
	if suspended {
		held = append(held, entry)
		mu.Unlock()
		return
	}
	logger := defaultLogger
	mu.Unlock()

	emit(logger, entry)
}

func emit(logger *slog.Logger, e LogEntry) {
	if logger == nil {
		// Before Init, fall back to the process-wide default.
		logger = slog.Default()
	}

	attrs := []slog.Attr{slog.String("subsystem", e.Subsystem)}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	logger.LogAttrs(context.Background(), e.Level.SlogLevel(), e.Message, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}
