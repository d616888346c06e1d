package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dadecresce/maestro-energy-management-sub000/internal/app"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/config"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.App.Environment == "development")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("app stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx, cfg, logger)
}
