// Package xlog is a minimal leveled logger for non-fatal diagnostics:
// page-size fallback decisions, files an audit cannot open, and
// write-operation progress (repair, defrag). It is intentionally small: a report is always
// the operation's return value, so logging stays a thin stdlib wrapper
// for diagnostics only.
package xlog

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Level controls verbosity.
type Level int32

const (
	LevelWarn Level = iota
	LevelInfo
	LevelDebug
)

// Logger writes leveled lines to an underlying *log.Logger.
type Logger struct {
	level atomic.Int32
	std   *log.Logger
}

// New returns a Logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	l := &Logger{std: log.New(w, "", 0)}
	l.level.Store(int32(level))
	return l
}

// Default is a package-level logger writing to stderr at LevelWarn,
// matching the quiet-by-default posture of a library (callers opt into more).
var Default = New(os.Stderr, LevelWarn)

// SetLevel adjusts verbosity at runtime.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *Logger) enabled(level Level) bool { return Level(l.level.Load()) >= level }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	if l.enabled(LevelDebug) {
		l.std.Printf("debug: "+format, args...)
	}
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	if l.enabled(LevelInfo) {
		l.std.Printf("info: "+format, args...)
	}
}

// Warnf logs at warn level (always enabled unless silenced by level config).
func (l *Logger) Warnf(format string, args ...any) {
	if l.enabled(LevelWarn) {
		l.std.Printf("warn: "+format, args...)
	}
}
