package executor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"signalexecutor/src/config"
	"signalexecutor/src/executors"
)

func (t *Executor) Start() error {
	path := t.ConfigPath
	if path == "" {
		path = GetConfig().ConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		return err
	}

	closer, err := config.SetupLogger(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Error("Failed to set up logging")
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logrus.WithField("config", path).Info("Starting signal executor")

	if err := executors.StartLoop(ctx, cfg); err != nil {
		logrus.WithError(err).Error("Signal executor stopped with error")
		return err
	}

	logrus.Info("Shutdown complete")
	return nil
}
