package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	debug := flag.Bool("debug", false, "enable development logging")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var logger *zap.Logger
	var err error
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("Starting curve engine")

	runner := app.NewRunner(logger)
	if err := runner.Initialize(*configPath); err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("Engine execution error", zap.Error(err))
	}
}
