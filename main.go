package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalexecutor/src/config"
	"signalexecutor/src/executors"
)

var (
	CONFIG_PATH = os.Getenv("CONFIG_PATH")
	APP_NAME    = os.Getenv("APP_NAME")
)

func main() {
	defer handlePanic()

	path := CONFIG_PATH
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	closer, err := config.SetupLogger(cfg.Logging)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up logging")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := executors.StartLoop(ctx, cfg); err != nil {
		logger.WithError(err).Error("Signal executor stopped with error")
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
