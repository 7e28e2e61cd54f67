package log

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is what brokerlink components log through. Key/value pairs follow
// the logr convention; a bare error or zap.Field may stand in for a pair.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	// Error attaches err under the "error" key when it is non-nil.
	Error(err error, msg string, keysAndValues ...any)

	WithName(name string) Logger
	WithValues(keysAndValues ...any) Logger

	// Logr exposes the same sink to libraries that take a logr.Logger.
	Logr() logr.Logger
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

var _ Logger = zapLogger{}

// New builds a Logger from opts, or from NewOptions() when opts is nil.
// It fails when an output path cannot be opened.
func New(opts *Options) (Logger, error) {
	if opts == nil {
		opts = NewOptions()
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	sink, closeSink, err := zap.Open(paths...)
	if err != nil {
		return nil, fmt.Errorf("open log output %v: %w", paths, err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("open log error output: %w", err)
	}

	core := zapcore.NewCore(newEncoder(opts), sink, zap.NewAtomicLevelAt(level))
	zo := []zap.Option{
		zap.ErrorOutput(errSink),
		zap.AddStacktrace(zapcore.DPanicLevel),
	}
	if !opts.DisableCaller {
		zo = append(zo, zap.AddCaller(), zap.AddCallerSkip(opts.CallerSkip))
	}

	z := zap.New(core, zo...)
	if opts.Name != "" {
		z = z.Named(opts.Name)
	}
	return zapLogger{z: z}, nil
}

// NewLogger is New for callers that treat a broken output as fatal.
func NewLogger(opts *Options) Logger {
	l, err := New(opts)
	if err != nil {
		panic(err)
	}
	return l
}

// FromZap wraps z.
func FromZap(z *zap.Logger) Logger {
	return zapLogger{z: z}
}

// NewNopLogger returns a Logger that drops every entry.
func NewNopLogger() Logger {
	return zapLogger{z: zap.NewNop()}
}

// Durations are written as fractional milliseconds.
func newEncoder(opts *Options) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "message",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendFloat64(float64(d) / float64(time.Millisecond))
		},
	}

	if opts.Format == FormatJSON {
		return zapcore.NewJSONEncoder(ec)
	}
	if opts.EnableColor {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

func parseLevel(level string) (zapcore.Level, error) {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

func (l zapLogger) Debug(msg string, keysAndValues ...any) {
	l.z.Debug(msg, toFields(keysAndValues...)...)
}

func (l zapLogger) Info(msg string, keysAndValues ...any) {
	l.z.Info(msg, toFields(keysAndValues...)...)
}

func (l zapLogger) Warn(msg string, keysAndValues ...any) {
	l.z.Warn(msg, toFields(keysAndValues...)...)
}

func (l zapLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := toFields(keysAndValues...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.z.Error(msg, fields...)
}

func (l zapLogger) WithName(name string) Logger {
	return zapLogger{z: l.z.Named(name)}
}

func (l zapLogger) WithValues(keysAndValues ...any) Logger {
	return zapLogger{z: l.z.With(toFields(keysAndValues...)...)}
}

func (l zapLogger) Logr() logr.Logger { return zapr.NewLogger(l.z) }

func (l zapLogger) Sync() error { return l.z.Sync() }
