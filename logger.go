package main

import (
	"go.uber.org/zap"
)

// sugar is replaced with a real logger in ServePage; the nop default keeps
// tests quiet.
var sugar = zap.NewNop().Sugar()

func initLogger(cfg *Config) error {
	var (
		logger *zap.Logger
		err    error
	)

	if cfg.verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	sugar = logger.Sugar()
	return nil
}
