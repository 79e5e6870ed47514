package logger

import (
	"go.uber.org/zap"
)

// New builds the service logger. Level comes from config (LOG_LEVEL); an
// unparseable level falls back to info rather than failing startup.
func New(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	return cfg.Build()
}
