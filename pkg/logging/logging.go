// Package logging provides the per-instance structured log sink used
// by every engine component. It keeps the teacher's field-chaining
// ergonomics (WithField/WithFields, level methods) while routing
// through a real go.uber.org/zap core instead of a hand-rolled JSON
// encoder, per spec §5's "sinks are not shared between engines in the
// same process" rule: every engine owns its own *Logger, never a
// package-level global.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with the field-chaining call shape used
// throughout this codebase.
type Logger struct {
	z *zap.Logger
}

// Options controls sink construction.
type Options struct {
	JSON  bool
	Level zapcore.Level
	Name  string
}

// New builds a per-instance logger. Each call constructs an
// independent zap core — nothing is shared between engines.
func New(opts Options) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), opts.Level)
	z := zap.New(core)
	if opts.Name != "" {
		z = z.Named(opts.Name)
	}
	return &Logger{z: z}
}

// Noop returns a logger that discards everything, for tests that don't
// care about log output.
func Noop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{z: l.z.With(zap.Any(key, value))}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{z: l.z.With(zf...)}
}

func (l *Logger) Debug(msg string) { l.z.Debug(msg) }
func (l *Logger) Info(msg string)  { l.z.Info(msg) }
func (l *Logger) Warn(msg string)  { l.z.Warn(msg) }
func (l *Logger) Error(msg string) { l.z.Error(msg) }

func (l *Logger) Sync() error { return l.z.Sync() }
