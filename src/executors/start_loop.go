package executors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logger "github.com/sirupsen/logrus"

	"signalexecutor/src/broadcaster"
	"signalexecutor/src/config"
	"signalexecutor/src/connectors"
	"signalexecutor/src/database"
	"signalexecutor/src/pipeline"
	"signalexecutor/src/repository"
	"signalexecutor/src/server"
	"signalexecutor/src/venue"
)

// RuntimeStatus is served on /status.
type RuntimeStatus struct {
	ClientID    string          `json:"client_id"`
	Broadcaster string          `json:"broadcaster"`
	Pipeline    pipeline.Status `json:"pipeline"`
	Dispatcher  DispatcherStats `json:"dispatcher"`
}

// newGateway is swapped in tests.
var newGateway = func(cfg config.Config) venue.Gateway {
	return connectors.NewMudrexFromConfig(cfg.Mudrex.APISecret, cfg.ConnectorConfig(),
		connectors.WithLogger(logger.WithField("component", "mudrex")))
}

// StartLoop validates the credentials, then streams signals into the pipeline until ctx is done.
// Queued instructions are drained before it returns.
func StartLoop(ctx context.Context, cfg config.Config) error {
	runtimeCfg := GetConfig()

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			logger.WithField("problem", p).Error("Invalid configuration")
		}
		return fmt.Errorf("invalid configuration: %d problem(s)", len(problems))
	}

	gateway := newGateway(cfg)
	executor := pipeline.NewExecutor(logger.WithField("component", "pipeline"), gateway, cfg.PipelineSettings())

	check := executor.ValidateCredentials(ctx)
	switch check.Status {
	case pipeline.CredentialsValid:
		logger.WithField("balance", check.Balance.StringFixed(2)).Info("Mudrex credentials validated")
	case pipeline.CredentialsTransient:
		logger.WithError(check.Err).Warn("Could not reach Mudrex, continuing")
	default:
		logger.WithError(check.Err).Error(check.Message)
		return errors.New(check.Message)
	}

	opts := []DispatcherOption{
		WithQueueSize(runtimeCfg.QueueSize),
		WithServiceName(runtimeCfg.ServiceName),
		WithDispatcherLogger(logger.WithField("component", "dispatcher")),
	}
	if cfg.Journal.Enabled {
		if err := database.InitMainDB(cfg.DatabaseConfig()); err != nil {
			logger.WithError(err).Error("Failed to open trade journal")
			return err
		}
		defer func() {
			if err := database.Close(database.MainDB); err != nil {
				logger.WithError(err).Warn("Failed to close trade journal")
			}
		}()
		opts = append(opts,
			WithJournal(repository.NewTradeRecordRepository(database.MainDB)),
			WithExceptionStore(repository.NewExceptionRepository(database.MainDB)),
		)
	}

	dispatcher := NewDispatcher(executor, opts...)
	client := broadcaster.NewClient(cfg.ClientConfig(), dispatcher,
		broadcaster.WithLogger(logger.WithField("component", "broadcaster")))

	var wg sync.WaitGroup
	if cfg.Server.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := func() any {
				return RuntimeStatus{
					ClientID:    cfg.Broadcaster.ClientID,
					Broadcaster: client.State().String(),
					Pipeline:    executor.Snapshot(),
					Dispatcher:  dispatcher.Stats(),
				}
			}
			if err := server.StartServer(ctx, cfg.Server.Port, status); err != nil {
				logger.WithError(err).Error("Status server stopped")
			}
		}()
	}

	logger.WithFields(logger.Fields{
		"client_id":    cfg.Broadcaster.ClientID,
		"url":          cfg.Broadcaster.URL,
		"auto_execute": cfg.Trading.AutoExecute,
	}).Info("Starting signal executor")

	err := client.Run(ctx)

	dispatcher.Close()
	wg.Wait()
	logger.WithField("stats", dispatcher.Stats()).Info("Signal executor stopped")

	if err != nil && !errors.Is(err, broadcaster.ErrStopped) {
		return err
	}
	return nil
}
