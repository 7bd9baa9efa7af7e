package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalexecutor/src/security"
)

func TestLoadFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
broadcaster:
  client_id: bot-1
  ping_interval: 45s
mudrex:
  api_secret: real-secret
trading:
  trade_amount_usdt: 12.5
  max_leverage: 10
risk:
  max_open_positions: 3
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bot-1", cfg.Broadcaster.ClientID)
	assert.Equal(t, 45*time.Second, cfg.Broadcaster.PingInterval)
	assert.Equal(t, 300*time.Second, cfg.Broadcaster.MaxBackoff)
	assert.True(t, cfg.UsesDefaultURL())
	assert.Equal(t, "real-secret", cfg.Mudrex.APISecret)
	assert.Equal(t, 12.5, cfg.Trading.TradeAmount)
	assert.True(t, cfg.Trading.AutoExecute)
	assert.Equal(t, 3, cfg.Risk.MaxOpenPositions)
	assert.Equal(t, 999999, cfg.Risk.MaxDailyTrades)
	assert.Empty(t, cfg.Validate())

	s := cfg.PipelineSettings()
	assert.True(t, s.TradeAmount.Equal(decimal.NewFromFloat(12.5)))
	assert.Equal(t, 10, s.MaxLeverage)
	assert.Equal(t, 3, s.Limits.MaxOpenPositions)
	assert.True(t, s.Limits.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MUDREX_API_SECRET", "env-secret")
	t.Setenv("TRADE_AMOUNT", "7")
	t.Setenv("SIGNAL_TRADING_MAX_LEVERAGE", "5")
	t.Setenv("AUTO_EXECUTE", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Mudrex.APISecret)
	assert.Equal(t, 7.0, cfg.Trading.TradeAmount)
	assert.Equal(t, 5, cfg.Trading.MaxLeverage)
	assert.False(t, cfg.Trading.AutoExecute)
	assert.Equal(t, 2*time.Second, cfg.Trading.RiskOrderDelay)
	assert.Equal(t, "https://trade.mudrex.com/fapi/v1", cfg.Mudrex.BaseURL)
	assert.True(t, strings.HasPrefix(cfg.Broadcaster.ClientID, "sdk-"), cfg.Broadcaster.ClientID)
	assert.Len(t, cfg.Broadcaster.ClientID, len("sdk-")+8)
}

func TestLoadDecryptsSecret(t *testing.T) {
	key, err := security.GenerateKey()
	require.NoError(t, err)
	sealed, err := security.EncryptString(key, "sealed-secret")
	require.NoError(t, err)

	t.Setenv("CREDENTIALS_KEY", key)
	t.Setenv("MUDREX_API_SECRET_ENCRYPTED", sealed)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sealed-secret", cfg.Mudrex.APISecret)

	t.Setenv("CREDENTIALS_KEY", "")
	_, err = Load("")
	require.Error(t, err)
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := Example()
	require.NoError(t, want.SaveToFile(path))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{
			name:   "valid",
			modify: func(c *Config) { c.Mudrex.APISecret = "abc" },
		},
		{
			name: "missing secret",
			want: []string{"Please enter your Mudrex API Secret in the config file"},
		},
		{
			name:   "placeholder secret",
			modify: func(c *Config) { c.Mudrex.APISecret = " your-secret " },
			want:   []string{"Please enter your actual Mudrex API Secret (not a placeholder)"},
		},
		{
			name: "everything wrong",
			modify: func(c *Config) {
				c.Broadcaster.URL = ""
				c.Mudrex.APISecret = "abc"
				c.Trading.TradeAmount = 2
				c.Trading.MaxLeverage = 0
				c.Journal.Driver = "mysql"
			},
			want: []string{
				"Broadcaster URL is required",
				"Trade amount must be at least 5 USDT (minimum required by Mudrex)",
				"Max leverage must be at least 1",
				`Unknown journal driver "mysql"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.modify != nil {
				tt.modify(&cfg)
			}
			assert.Equal(t, tt.want, cfg.Validate())
		})
	}
}

func TestSetupLogger(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)

	path := filepath.Join(t.TempDir(), "sdk.log")
	closer, err := SetupLogger(LoggingConfig{Level: "WARN", Format: "json", File: path})
	require.NoError(t, err)

	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	logrus.Warn("written to file")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"written to file"`)

	closer, err = SetupLogger(LoggingConfig{Level: "nonsense", Console: true})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	require.NoError(t, closer.Close())
}
