// Package logger wraps the zap logger used across the service.
package logger

import (
	"go.uber.org/zap"
)

type Logger struct {
	Log *zap.Logger
}

// New returns a no-op logger until Init is called.
func New() *Logger {
	return &Logger{
		Log: zap.NewNop(),
	}
}

// Init replaces the no-op logger with a production one at the given level.
func (l *Logger) Init(level string) error {
	// parse the textual level into zap.AtomicLevel
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	// start from the production configuration
	cfg := zap.NewProductionConfig()
	// apply the level
	cfg.Level = lvl
	// build the logger from the configuration
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	// replace the no-op logger
	l.Log = zl
	return nil
}
