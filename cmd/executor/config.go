package executor

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	appconfig "signalexecutor/src/config"
)

// Config is read when no --config flag is given.
type Config struct {
	ConfigPath string `envconfig:"CONFIG_PATH" default:"config.yaml"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if config.ConfigPath == "" {
		config.ConfigPath = appconfig.DefaultPath
	}
	return &config
}

// Executor runs the signal loop until interrupted.
type Executor struct {
	ConfigPath string
}
