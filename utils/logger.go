package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
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

// Logger provides leveled, timestamped logging throughout the application.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	err   io.Writer
	level Level
	color bool
}

// NewLogger creates a Logger writing info/warn/debug to stdout and errors to stderr.
func NewLogger() *Logger {
	return &Logger{out: os.Stdout, err: os.Stderr, level: LevelInfo, color: true}
}

// NewLoggerTo creates an uncoloured Logger that writes every level to w.
func NewLoggerTo(w io.Writer, level Level) *Logger {
	return &Logger{out: w, err: w, level: level}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, LevelError+1)
}

// SetLevel changes the minimum level written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) write(level Level, tag, color, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	if l.color {
		tag = "\033[" + color + "m" + tag + "\033[0m"
	}
	w := l.out
	if level == LevelError {
		w = l.err
	}
	fmt.Fprintf(w, "[%s] %s %s\n", l.timestamp(), tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.write(LevelInfo, "INFO ", "32", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(LevelWarn, "WARN ", "33", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, "ERROR", "31", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.write(LevelDebug, "DEBUG", "36", format, args...)
}
