package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/rl1809/sales-api/internal/app"
	"github.com/rl1809/sales-api/internal/config"
	"github.com/rl1809/sales-api/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	setupLogger(cfg)

	logger := log.WithField("component", "app")
	logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start")
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.WithError(err).Error("stopped with error")
		a.Close()
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}
