package log

import (
	"sync"

	"github.com/go-logr/logr"
)

var (
	initOnce sync.Once
	std      = NewNopLogger()
)

// Init sets the process-wide logger used by the package functions. Calls
// after the first are ignored, so it must run before any goroutine logs.
func Init(opts *Options) {
	initOnce.Do(func() {
		std = NewLogger(opts)
	})
}

// Std returns the process-wide logger, a no-op until Init runs.
func Std() Logger { return std }

func Debug(msg string, keysAndValues ...any) { std.Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { std.Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { std.Warn(msg, keysAndValues...) }

func Error(err error, msg string, keysAndValues ...any) {
	std.Error(err, msg, keysAndValues...)
}

func WithName(name string) Logger            { return std.WithName(name) }
func WithValues(keysAndValues ...any) Logger { return std.WithValues(keysAndValues...) }
func Logr() logr.Logger                      { return std.Logr() }
func Sync() error                            { return std.Sync() }
