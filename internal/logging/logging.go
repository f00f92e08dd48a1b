// Package logging provides optional diagnostic logging for the encoder.
package logging

import (
	"io"
	"log"
	"time"
)

// level represents the logging level.
type level int

const (
	levelInfo level = iota
	levelDebug
)

// Logger wraps the standard logger with level filtering.
//
// A nil *Logger is always safe to call: every method is a no-op, so callers
// that don't want diagnostics can leave Options.Logger unset.
type Logger struct {
	level  level
	logger *log.Logger
}

// New wraps w as a Logger. If verbose is true, Debug messages are emitted in
// addition to Info messages.
func New(w io.Writer, verbose bool) *Logger {
	lvl := levelInfo
	if verbose {
		lvl = levelDebug
	}
	return &Logger{
		level:  lvl,
		logger: log.New(w, "", 0),
	}
}

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("%s [INFO] "+format, append([]any{timestamp}, args...)...)
}

// Debug logs a debug-level message (only if verbose mode is enabled).
func (l *Logger) Debug(format string, args ...any) {
	if l == nil || l.level < levelDebug {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("%s [DEBUG] "+format, append([]any{timestamp}, args...)...)
}
