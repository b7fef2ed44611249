// Package logging provides zap logger helpers shared across the service.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the shared application logger. It defaults to a no-op logger until
// InitLogger is called, so packages can log safely during early startup.
var L = zap.NewNop()

// InitLogger builds the global logger. Development mode enables colored,
// human-readable output; production mode emits JSON.
func InitLogger(development bool) {
	logger, err := New(development)
	if err != nil {
		// If zap itself cannot initialize there is nothing better to do.
		panic(fmt.Sprintf("init logger: %v", err))
	}
	L = logger
}

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}
