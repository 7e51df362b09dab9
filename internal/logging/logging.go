package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process logger. Level is one of debug, info, warn or
// error. Development switches to the console encoder with colored levels;
// production emits JSON.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards all output.
func Nop() *zap.Logger {
	return zap.NewNop()
}
