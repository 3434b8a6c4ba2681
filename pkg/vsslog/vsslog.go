// Package vsslog wraps github.com/go-logr/logr as the diagnostic sink
// collaborator named (but left unspecified) by the core library. Loaders
// and the read engine accept a *Logger instead of writing to a package-level
// global, so callers can plug in any logr-compatible backend (or none).
package vsslog

import "github.com/go-logr/logr"

// Verbosity levels, matching the V(n) convention used by logr backends.
const (
	LevelInfo  = 0
	LevelDebug = 1
	LevelTrace = 2
)

// Logger wraps a logr.Logger with the small, domain-flavored method set
// used throughout this module.
type Logger struct {
	log logr.Logger
}

// New wraps log. If log's sink is nil, diagnostics are discarded.
func New(log logr.Logger) *Logger {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Logger{log: log}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return &Logger{log: logr.Discard()}
}

// Info logs a normal diagnostic message.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	if l == nil {
		return
	}
	l.log.Info(msg, keysAndValues...)
}

// Debug logs a verbose diagnostic message (e.g. per-store decisions).
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if l == nil {
		return
	}
	l.log.V(LevelDebug).Info(msg, keysAndValues...)
}

// Trace logs a very verbose diagnostic message (e.g. each block-range
// entry recorded while a store is loaded).
func (l *Logger) Trace(msg string, keysAndValues ...interface{}) {
	if l == nil {
		return
	}
	l.log.V(LevelTrace).Info(msg, keysAndValues...)
}

// Error logs a non-fatal error, such as a single store that failed to load
// while others succeeded.
func (l *Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	if l == nil {
		return
	}
	l.log.Error(err, msg, keysAndValues...)
}
