package cli

import (
	"fmt"

	"trivia-party/internal/config"

	"go.uber.org/zap"
)

func newLogger(cfg config.Config, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if verbose {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zcfg.Level = level
	return zcfg.Build()
}
