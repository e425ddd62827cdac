// Package logging provides the scoped, structured logger shared by the
// stores, the HTTP server and the remote CLI.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger that can be scoped to a named source
type Logger interface {
	// Source returns a logger whose entries carry the given source name
	Source(name string) Logger
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console output with colored levels
	OutputPaths []string
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New creates a Logger from configuration. An unknown level falls back to info.
func New(cfg Config) (Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		config.OutputPaths = cfg.OutputPaths
	}

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return FromZap(l), nil
}

// FromZap wraps an existing zap logger
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{sugar: l.Sugar()}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return FromZap(zap.NewNop())
}

func (l *zapLogger) Source(name string) Logger {
	return &zapLogger{sugar: l.sugar.Named(name)}
}

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries when l is backed by zap
func Sync(l Logger) error {
	if z, ok := l.(*zapLogger); ok {
		return z.sugar.Sync()
	}
	return nil
}
