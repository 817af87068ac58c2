// Package logging adapts github.com/cyclopcam/logs for markerctl.
//
// Every component takes a logs.Log. This package adds a level gate on top of
// that interface so that high-frequency debug messages are dropped unless
// MARKERCTL_LOG_LEVEL=debug is set.
package logging

import (
	"os"
	"strings"

	"github.com/cyclopcam/logs"
)

// EnvLogLevel is the environment variable that selects the minimum level.
const EnvLogLevel = "MARKERCTL_LOG_LEVEL"

// ParseLevel converts a level name ("debug", "info", "warn", "error",
// "critical") to a logs.Level. Unknown or empty names yield logs.LevelInfo.
func ParseLevel(s string) logs.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logs.LevelDebug
	case "warn", "warning":
		return logs.LevelWarn
	case "error":
		return logs.LevelError
	case "critical":
		return logs.LevelCritical
	}
	return logs.LevelInfo
}

// LevelFromEnv reads EnvLogLevel.
func LevelFromEnv() logs.Level {
	return ParseLevel(os.Getenv(EnvLogLevel))
}

// Filter drops messages below Min before passing them to Log.
type Filter struct {
	Log logs.Log
	Min logs.Level
}

// NewFilter wraps log so that only messages at min or above are written.
func NewFilter(log logs.Log, min logs.Level) *Filter {
	return &Filter{Log: log, Min: min}
}

func (f *Filter) Close() {
	f.Log.Close()
}

func (f *Filter) Debugf(format string, a ...interface{}) {
	if f.Min <= logs.LevelDebug {
		f.Log.Debugf(format, a...)
	}
}

func (f *Filter) Infof(format string, a ...interface{}) {
	if f.Min <= logs.LevelInfo {
		f.Log.Infof(format, a...)
	}
}

func (f *Filter) Warnf(format string, a ...interface{}) {
	if f.Min <= logs.LevelWarn {
		f.Log.Warnf(format, a...)
	}
}

func (f *Filter) Errorf(format string, a ...interface{}) {
	if f.Min <= logs.LevelError {
		f.Log.Errorf(format, a...)
	}
}

// Criticalf is never filtered.
func (f *Filter) Criticalf(format string, a ...interface{}) {
	f.Log.Criticalf(format, a...)
}

var _ logs.Log = (*Filter)(nil)
