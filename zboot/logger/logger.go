package logger

import (
	"fmt"
	"io"
	"os"
	"time"
)

// EnvVar is the environment variable that enables diagnostic logging.
// Any value (including empty string assignment) turns logging on.
const EnvVar = "LLRT_LOG"

// Logger writes timestamped diagnostic lines. A disabled logger discards
// everything; the enabled check happens once at construction, not per call,
// so the hot path of a disabled launcher pays a single branch.
type Logger struct {
	enabled bool
	output  io.Writer
}

// FromEnv builds the process logger, enabled when LLRT_LOG is set.
func FromEnv() *Logger {
	_, enabled := os.LookupEnv(EnvVar)
	return &Logger{enabled: enabled, output: os.Stdout}
}

// New builds a logger with explicit settings, used by tests.
func New(enabled bool, output io.Writer) *Logger {
	return &Logger{enabled: enabled, output: output}
}

// Enabled reports whether this logger emits output.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

func (l *Logger) log(level string, format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}
	timestamp := time.Now().Format("2006-01-02T15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.output, "[%s][%s] %s\n", level, timestamp, message)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}
