// Package config loads the executor configuration from a YAML file or the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"signalexecutor/src/broadcaster"
	"signalexecutor/src/connectors"
	"signalexecutor/src/database"
	"signalexecutor/src/pipeline"
	"signalexecutor/src/risk"
	"signalexecutor/src/security"
)

const (
	DefaultPath = "config.yaml"
	EnvPrefix   = "SIGNAL"
)

// Config is the full executor configuration.
// Every field can also be set from the environment, either prefixed (SIGNAL_TRADING_TRADE_AMOUNT)
// or by its short name (TRADE_AMOUNT).
type Config struct {
	Broadcaster BroadcasterConfig `yaml:"broadcaster" envconfig:"BROADCASTER"`
	Mudrex      MudrexConfig      `yaml:"mudrex" envconfig:"MUDREX"`
	Trading     TradingConfig     `yaml:"trading" envconfig:"TRADING"`
	Risk        RiskConfig        `yaml:"risk" envconfig:"RISK"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Journal     JournalConfig     `yaml:"journal" envconfig:"JOURNAL"`
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
}

type BroadcasterConfig struct {
	URL              string        `yaml:"url" envconfig:"BROADCASTER_URL" default:"wss://tia-service-broadcaster-production.up.railway.app/ws"`
	ClientID         string        `yaml:"client_id" envconfig:"CLIENT_ID"`
	PingInterval     time.Duration `yaml:"ping_interval" envconfig:"PING_INTERVAL" default:"30s"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" envconfig:"INITIAL_BACKOFF" default:"5s"`
	MaxBackoff       time.Duration `yaml:"max_backoff" envconfig:"MAX_BACKOFF" default:"300s"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" envconfig:"HANDSHAKE_TIMEOUT" default:"15s"`
}

type MudrexConfig struct {
	APISecret string `yaml:"api_secret" envconfig:"MUDREX_API_SECRET"`
	// APISecretEncrypted is the output of the keys command. Used when APISecret is empty.
	APISecretEncrypted string        `yaml:"api_secret_encrypted,omitempty" envconfig:"MUDREX_API_SECRET_ENCRYPTED"`
	BaseURL            string        `yaml:"base_url" envconfig:"MUDREX_BASE_URL" default:"https://trade.mudrex.com/fapi/v1"`
	Timeout            time.Duration `yaml:"timeout" envconfig:"MUDREX_TIMEOUT" default:"15s"`
	RetryCount         int           `yaml:"retry_count" envconfig:"MUDREX_RETRY_COUNT" default:"2"`
}

type TradingConfig struct {
	Enabled           bool          `yaml:"enabled" envconfig:"TRADING_ENABLED" default:"true"`
	AutoExecute       bool          `yaml:"auto_execute" envconfig:"AUTO_EXECUTE" default:"true"`
	TradeAmount       float64       `yaml:"trade_amount_usdt" envconfig:"TRADE_AMOUNT" default:"5"`
	MaxLeverage       int           `yaml:"max_leverage" envconfig:"MAX_LEVERAGE" default:"25"`
	MinOrderValue     float64       `yaml:"min_order_value" envconfig:"MIN_ORDER_VALUE" default:"5"`
	RiskOrderDelay    time.Duration `yaml:"risk_order_delay" envconfig:"RISK_ORDER_DELAY" default:"2s"`
	RiskOrderAttempts int           `yaml:"risk_order_attempts" envconfig:"RISK_ORDER_ATTEMPTS" default:"3"`
}

type RiskConfig struct {
	MaxDailyTrades   int     `yaml:"max_daily_trades" envconfig:"MAX_DAILY_TRADES" default:"999999"`
	MaxOpenPositions int     `yaml:"max_open_positions" envconfig:"MAX_OPEN_POSITIONS" default:"999999"`
	StopOnDailyLoss  float64 `yaml:"stop_on_daily_loss" envconfig:"STOP_ON_DAILY_LOSS" default:"0"`
	MinBalance       float64 `yaml:"min_balance" envconfig:"MIN_BALANCE" default:"0"`
}

type LoggingConfig struct {
	Level   string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format  string `yaml:"format" envconfig:"LOG_FORMAT" default:"text"` // "text" or "json"
	File    string `yaml:"file" envconfig:"LOG_FILE" default:"signal_sdk.log"`
	Console bool   `yaml:"console" envconfig:"LOG_CONSOLE" default:"true"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"JOURNAL_ENABLED" default:"true"`
	Driver  string `yaml:"driver" envconfig:"JOURNAL_DRIVER" default:"sqlite"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn" envconfig:"JOURNAL_DSN" default:"signal_trades.db"`
	// GormLogLevel: 1 silent, 2 error, 3 warn, 4 info.
	GormLogLevel int `yaml:"gorm_log_level" envconfig:"GORM_LOG_LEVEL" default:"1"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"SERVER_ENABLED" default:"false"`
	Port    string `yaml:"port" envconfig:"SERVER_PORT" default:"9898"`
}

// Default mirrors the envconfig defaults for use as the base of a YAML load and by the init command.
func Default() Config {
	return Config{
		Broadcaster: BroadcasterConfig{
			URL:              broadcaster.DefaultURL,
			PingInterval:     30 * time.Second,
			InitialBackoff:   broadcaster.DefaultInitialBackoff,
			MaxBackoff:       broadcaster.DefaultMaxBackoff,
			HandshakeTimeout: 15 * time.Second,
		},
		Mudrex: MudrexConfig{
			BaseURL:    connectors.DefaultMudrexBaseURL,
			Timeout:    15 * time.Second,
			RetryCount: 2,
		},
		Trading: TradingConfig{
			Enabled:           true,
			AutoExecute:       true,
			TradeAmount:       5,
			MaxLeverage:       25,
			MinOrderValue:     5,
			RiskOrderDelay:    pipeline.DefaultRiskOrderDelay,
			RiskOrderAttempts: pipeline.DefaultRiskOrderAttempts,
		},
		Risk: RiskConfig{
			MaxDailyTrades:   999999,
			MaxOpenPositions: 999999,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			File:    "signal_sdk.log",
			Console: true,
		},
		Journal: JournalConfig{
			Enabled:      true,
			Driver:       "sqlite",
			DSN:          "signal_trades.db",
			GormLogLevel: 1,
		},
		Server: ServerConfig{
			Port: "9898",
		},
	}
}

// Example is Default with a placeholder secret, written by the init command.
func Example() Config {
	cfg := Default()
	cfg.Broadcaster.ClientID = NewClientID()
	cfg.Mudrex.APISecret = placeholderSecrets[0]
	return cfg
}

// Load reads .env when present, then path when it exists, otherwise the environment.
// A missing client id is generated and an encrypted secret is decrypted.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var (
		cfg Config
		err error
	)
	if path != "" && fileExists(path) {
		cfg, err = LoadFile(path)
	} else {
		cfg, err = LoadEnv()
	}
	if err != nil {
		return Config{}, err
	}

	if cfg.Broadcaster.URL == "" {
		cfg.Broadcaster.URL = broadcaster.DefaultURL
	}
	if cfg.Broadcaster.ClientID == "" {
		cfg.Broadcaster.ClientID = NewClientID()
	}
	if err := cfg.resolveSecret(security.GetConfig().CredentialsKey); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file over Default.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func LoadEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes cfg as YAML, creating parent directories. Existing files are replaced.
func (c Config) SaveToFile(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) resolveSecret(key string) error {
	if c.Mudrex.APISecret != "" || c.Mudrex.APISecretEncrypted == "" {
		return nil
	}
	plain, err := security.DecryptString(key, c.Mudrex.APISecretEncrypted)
	if err != nil {
		return fmt.Errorf("decrypt mudrex api secret: %w", err)
	}
	c.Mudrex.APISecret = plain
	return nil
}

var placeholderSecrets = []string{"your_mudrex_api_secret", "your-secret", "api_secret"}

// Validate returns every problem found, in a stable order. An empty slice means the config is usable.
func (c Config) Validate() []string {
	var problems []string

	if strings.TrimSpace(c.Broadcaster.URL) == "" {
		problems = append(problems, "Broadcaster URL is required")
	}

	secret := strings.TrimSpace(c.Mudrex.APISecret)
	switch {
	case secret == "":
		problems = append(problems, "Please enter your Mudrex API Secret in the config file")
	case isPlaceholder(secret):
		problems = append(problems, "Please enter your actual Mudrex API Secret (not a placeholder)")
	}

	if c.Trading.TradeAmount < c.Trading.MinOrderValue {
		problems = append(problems, fmt.Sprintf("Trade amount must be at least %s USDT (minimum required by Mudrex)",
			decimal.NewFromFloat(c.Trading.MinOrderValue).String()))
	}
	if c.Trading.MaxLeverage < 1 {
		problems = append(problems, "Max leverage must be at least 1")
	}

	switch c.Journal.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		if c.Journal.Enabled {
			problems = append(problems, fmt.Sprintf("Unknown journal driver %q", c.Journal.Driver))
		}
	}

	return problems
}

func isPlaceholder(secret string) bool {
	for _, p := range placeholderSecrets {
		if secret == p {
			return true
		}
	}
	return false
}

// UsesDefaultURL reports whether the broadcaster URL was left at the shipped value.
func (c Config) UsesDefaultURL() bool {
	return c.Broadcaster.URL == broadcaster.DefaultURL
}

func (c Config) ClientConfig() broadcaster.Config {
	return broadcaster.Config{
		URL:              c.Broadcaster.URL,
		ClientID:         c.Broadcaster.ClientID,
		PingInterval:     c.Broadcaster.PingInterval,
		InitialBackoff:   c.Broadcaster.InitialBackoff,
		MaxBackoff:       c.Broadcaster.MaxBackoff,
		HandshakeTimeout: c.Broadcaster.HandshakeTimeout,
	}
}

func (c Config) ConnectorConfig() connectors.Config {
	return connectors.Config{
		MudrexBaseURL:    c.Mudrex.BaseURL,
		MudrexRetryCount: c.Mudrex.RetryCount,
		MudrexTimeout:    c.Mudrex.Timeout,
	}
}

func (c Config) DatabaseConfig() database.Config {
	return database.Config{
		Driver:       c.Journal.Driver,
		DSN:          c.Journal.DSN,
		GormLogLevel: c.Journal.GormLogLevel,
	}
}

func (c Config) PipelineSettings() pipeline.Settings {
	return pipeline.Settings{
		AutoExecute: c.Trading.AutoExecute,
		TradeAmount: decimal.NewFromFloat(c.Trading.TradeAmount),
		MaxLeverage: c.Trading.MaxLeverage,
		Limits: risk.Limits{
			Enabled:          c.Trading.Enabled,
			MaxDailyTrades:   c.Risk.MaxDailyTrades,
			MaxOpenPositions: c.Risk.MaxOpenPositions,
			StopOnDailyLoss:  decimal.NewFromFloat(c.Risk.StopOnDailyLoss),
			MinBalance:       decimal.NewFromFloat(c.Risk.MinBalance),
		},
		RiskOrderDelay:    c.Trading.RiskOrderDelay,
		RiskOrderAttempts: c.Trading.RiskOrderAttempts,
	}
}

// NewClientID returns "sdk-" followed by 8 hex characters.
func NewClientID() string {
	return "sdk-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
