package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(strings.TrimSpace(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

// ForService returns a logger tagged with the service name and environment.
func ForService(level, service, env string) (*zap.Logger, error) {
	log, err := New(level)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{zap.String("service", service)}
	if env != "" {
		fields = append(fields, zap.String("env", env))
	}
	return log.With(fields...), nil
}
