package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across stores, services and
// handlers. Key-value pairs follow the message, alternating key, value.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewLogger builds a zap-backed Logger. "production" selects the JSON encoder
// at info level; anything else gets the development console encoder at debug.
func NewLogger(env string) Logger {
	var l *zap.Logger
	if env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, _ = cfg.Build(zap.AddCallerSkip(1))
	} else {
		l, _ = zap.NewDevelopment(zap.AddCallerSkip(1))
	}
	return &zapLogger{s: l.Sugar()}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debug(msg string, keysAndValues ...any) {
	z.s.Debugw(msg, keysAndValues...)
}

func (z *zapLogger) Info(msg string, keysAndValues ...any) {
	z.s.Infow(msg, keysAndValues...)
}

func (z *zapLogger) Warn(msg string, keysAndValues ...any) {
	z.s.Warnw(msg, keysAndValues...)
}

func (z *zapLogger) Error(msg string, keysAndValues ...any) {
	z.s.Errorw(msg, keysAndValues...)
}
