// Package zaplogrus exposes a logrus-style API backed by zap.
package zaplogrus

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int8

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

type Fields map[string]interface{}

type Logger struct {
	mu          sync.RWMutex
	base        *zap.Logger
	atomicLevel zap.AtomicLevel
	level       Level
}

type Entry struct {
	logger *Logger
	fields []zap.Field
}

var std = New()

// New returns a JSON logger writing to stdout at info level.
func New() *Logger {
	atomicLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		atomicLevel,
	)
	return newLogger(core, atomicLevel, InfoLevel)
}

// NewConsole returns a human-readable logger writing to w.
func NewConsole(w io.Writer, level Level) *Logger {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		atomicLevel,
	)
	return newLogger(core, atomicLevel, level)
}

// NewWithCore wraps an existing core. Level filtering is left to the core.
func NewWithCore(core zapcore.Core) *Logger {
	return newLogger(core, zap.NewAtomicLevelAt(zapcore.DebugLevel), DebugLevel)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return NewWithCore(zapcore.NewNopCore())
}

func newLogger(core zapcore.Core, atomicLevel zap.AtomicLevel, level Level) *Logger {
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{base: base, atomicLevel: atomicLevel, level: level}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error", "fatal", "panic":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.atomicLevel.SetLevel(toZapLevel(level))
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Named returns an entry tagged with a component field.
func (l *Logger) Named(component string) *Entry {
	return l.WithField("component", component)
}

func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: []zap.Field{zap.Any(key, value)}}
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: toZapFields(fields)}
}

func (l *Logger) WithError(err error) *Entry {
	return &Entry{logger: l, fields: []zap.Field{zap.Error(err)}}
}

func (l *Logger) Debug(args ...interface{}) { l.base.Debug(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...interface{})  { l.base.Info(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.base.Warn(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.base.Error(fmt.Sprint(args...)) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.base.Debug(fmt.Sprintf(format, args...))
}
func (l *Logger) Infof(format string, args ...interface{}) { l.base.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{}) { l.base.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.base.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Sync() error { return l.base.Sync() }

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: e.logger, fields: append(copyFields(e.fields), zap.Any(key, value))}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{logger: e.logger, fields: append(copyFields(e.fields), toZapFields(fields)...)}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{logger: e.logger, fields: append(copyFields(e.fields), zap.Error(err))}
}

func (e *Entry) Debug(args ...interface{}) { e.with().Debug(fmt.Sprint(args...)) }
func (e *Entry) Info(args ...interface{})  { e.with().Info(fmt.Sprint(args...)) }
func (e *Entry) Warn(args ...interface{})  { e.with().Warn(fmt.Sprint(args...)) }
func (e *Entry) Error(args ...interface{}) { e.with().Error(fmt.Sprint(args...)) }

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.with().Debug(fmt.Sprintf(format, args...))
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.with().Info(fmt.Sprintf(format, args...))
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.with().Warn(fmt.Sprintf(format, args...))
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.with().Error(fmt.Sprintf(format, args...))
}

func (e *Entry) with() *zap.Logger {
	return e.logger.base.With(e.fields...)
}

// Standard returns the package-level logger.
func Standard() *Logger { return std }

func Info(args ...interface{}) { std.base.WithOptions(zap.AddCallerSkip(1)).Info(fmt.Sprint(args...)) }
func Warn(args ...interface{}) { std.base.WithOptions(zap.AddCallerSkip(1)).Warn(fmt.Sprint(args...)) }
func Error(args ...interface{}) {
	std.base.WithOptions(zap.AddCallerSkip(1)).Error(fmt.Sprint(args...))
}

func Infof(format string, args ...interface{}) {
	std.base.WithOptions(zap.AddCallerSkip(1)).Info(fmt.Sprintf(format, args...))
}
func Warnf(format string, args ...interface{}) {
	std.base.WithOptions(zap.AddCallerSkip(1)).Warn(fmt.Sprintf(format, args...))
}
func Errorf(format string, args ...interface{}) {
	std.base.WithOptions(zap.AddCallerSkip(1)).Error(fmt.Sprintf(format, args...))
}

func WithField(key string, value interface{}) *Entry { return std.WithField(key, value) }
func WithFields(fields Fields) *Entry                { return std.WithFields(fields) }
func WithError(err error) *Entry                     { return std.WithError(err) }

func toZapFields(fields Fields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}
	return out
}

func copyFields(in []zap.Field) []zap.Field {
	out := make([]zap.Field, len(in))
	copy(out, in)
	return out
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case DebugLevel:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
