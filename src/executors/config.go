package executors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime knobs that are not part of the user facing config file.
type Config struct {
	ServiceName string `envconfig:"APP_NAME" default:"signalexecutor"`
	QueueSize   int    `envconfig:"EXECUTOR_QUEUE_SIZE" default:"64"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
