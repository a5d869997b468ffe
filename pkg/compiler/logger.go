package compiler

import (
	"fmt"
	"os"
)

// Logger is the ambient logging interface threaded through the driver and
// its stages. The default is the no-op implementation; the CLI installs the
// stderr one when verbose output is requested.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type noOpLogger struct{}

func (noOpLogger) Debug(string, ...interface{}) {}
func (noOpLogger) Info(string, ...interface{})  {}
func (noOpLogger) Warn(string, ...interface{})  {}
func (noOpLogger) Error(string, ...interface{}) {}

// NewNoOpLogger returns a logger that discards everything.
func NewNoOpLogger() Logger { return noOpLogger{} }

type stderrLogger struct{}

func (stderrLogger) Debug(format string, args ...interface{}) { logf("debug", format, args...) }
func (stderrLogger) Info(format string, args ...interface{})  { logf("info", format, args...) }
func (stderrLogger) Warn(format string, args ...interface{})  { logf("warn", format, args...) }
func (stderrLogger) Error(format string, args ...interface{}) { logf("error", format, args...) }

func logf(level, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}

// NewStderrLogger returns a logger writing level-prefixed lines to stderr.
func NewStderrLogger() Logger { return stderrLogger{} }
