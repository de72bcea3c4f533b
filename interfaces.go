package respkv

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// Logger interface for custom logging implementations
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// MetricsCollector interface for metrics collection
type MetricsCollector interface {
	// RecordCommandProcessed records a processed command with its duration
	RecordCommandProcessed(cmd string, duration time.Duration)

	// RecordConnection records an accepted client connection
	RecordConnection()

	// RecordError records an error event
	RecordError(errorType string)

	// RecordKeyCount records the current number of keys
	RecordKeyCount(count int64)
}

// LogLevel filters log output. Messages below the level are dropped.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLogLevel converts a level name to a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q, must be one of debug, info, warn, error: %w", level, ErrInvalidConfig)
	}
}

// defaultLogger is a leveled logger on the standard log package. Lines look
// like "INFO  | server          | msg key=value".
type defaultLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

// NewLogger creates a logger that writes lines tagged with component to w.
// A nil w writes to stdout.
func NewLogger(component string, level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &defaultLogger{
		name:   component,
		level:  level,
		logger: log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *defaultLogger) Debug(msg string, fields ...Field) {
	if l.level <= LevelDebug {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

func (l *defaultLogger) Info(msg string, fields ...Field) {
	if l.level <= LevelInfo {
		l.logWithFields("INFO", msg, fields...)
	}
}

func (l *defaultLogger) Error(msg string, fields ...Field) {
	if l.level <= LevelError {
		l.logWithFields("ERROR", msg, fields...)
	}
}

func (l *defaultLogger) logWithFields(level, msg string, fields ...Field) {
	var sb strings.Builder
	sb.WriteString(msg)
	for _, field := range fields {
		sb.WriteString(" ")
		sb.WriteString(field.Key)
		sb.WriteString("=")
		sb.WriteString(formatValue(field.Value))
	}
	l.logger.Printf("%-5s | %-15s | %s", level, l.name, sb.String())
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case error:
		return val.Error()
	default:
		return fmt.Sprintf("%v", val)
	}
}
