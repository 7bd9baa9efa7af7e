// Package doctor implements the diagnostic commands: doctor, status and test.
package doctor

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"signalexecutor/cmd/ui"
	"signalexecutor/src/broadcaster"
	"signalexecutor/src/config"
	"signalexecutor/src/connectors"
	"signalexecutor/src/model"
	"signalexecutor/src/pipeline"
	"signalexecutor/src/venue"
)

var ErrChecksFailed = errors.New("some checks failed")

const defaultProbeTimeout = 10 * time.Second

// Doctor runs one-shot checks against the configuration, the broadcaster and Mudrex.
type Doctor struct {
	Out        io.Writer
	ConfigPath string
	Timeout    time.Duration
	// NewGateway builds the venue client. Defaults to the Mudrex connector.
	NewGateway func(cfg config.Config) venue.Gateway
	Log        *logrus.Entry
}

func New(out io.Writer, configPath string) *Doctor {
	return &Doctor{Out: out, ConfigPath: configPath}
}

func (d *Doctor) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return defaultProbeTimeout
}

func (d *Doctor) log() *logrus.Entry {
	if d.Log != nil {
		return d.Log
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	return logrus.NewEntry(quiet)
}

func (d *Doctor) gateway(cfg config.Config) venue.Gateway {
	if d.NewGateway != nil {
		return d.NewGateway(cfg)
	}
	return connectors.NewMudrexFromConfig(cfg.Mudrex.APISecret, cfg.ConnectorConfig(),
		connectors.WithLogger(d.log()))
}

// Run prints every check and returns ErrChecksFailed when any of them failed.
func (d *Doctor) Run(ctx context.Context) error {
	p := ui.New(d.Out)
	step := p.Nested()
	ok := true

	p.Title("🩺 Signal SDK Doctor")
	p.Blank()

	p.Section("1. Configuration File")
	if fileExists(d.ConfigPath) {
		step.OK("Found: %s", d.ConfigPath)
	} else {
		step.Warn("Not found: %s", d.ConfigPath)
		step.Dim("Falling back to environment variables. Run 'signal-sdk init' to create a config file")
	}

	cfg, err := config.Load(d.ConfigPath)
	if err != nil {
		step.Fail("Failed to load config: %v", err)
		p.Blank()
		p.Rule()
		p.Fail("Some checks failed")
		return ErrChecksFailed
	}
	step.OK("Config loaded successfully")

	p.Blank()
	p.Section("2. Configuration Validation")
	if problems := cfg.Validate(); len(problems) == 0 {
		step.OK("All required fields present")
	} else {
		ok = false
		step.Fail("Configuration errors:")
		step.Nested().Bullets(problems...)
	}

	p.Blank()
	p.Section("3. Broadcaster Connection")
	step.Dim("URL: %s", cfg.Broadcaster.URL)
	if isPlaceholderURL(cfg.Broadcaster.URL) {
		ok = false
		step.Warn("Placeholder URL detected")
		step.Dim("Please update %s with your actual broadcaster URL", d.ConfigPath)
	} else if err := d.probe(ctx, cfg); err != nil {
		ok = false
		step.Fail("Connection failed: %v", err)
		step.Dim("Troubleshooting:")
		step.Bullets(
			"Check your internet connection",
			"Verify the broadcaster URL is correct",
			"The service may be temporarily down",
		)
	} else {
		step.OK("Connected to broadcaster")
	}

	p.Blank()
	p.Section("4. Mudrex API")
	if strings.TrimSpace(cfg.Mudrex.APISecret) == "" {
		ok = false
		step.Fail("API Secret not configured")
	} else {
		step.Dim("Testing API credentials...")
		check := d.credentials(ctx, cfg)
		if check.OK() {
			step.OK(check.Message)
		} else {
			ok = false
			step.Fail(check.Message)
			if tips := credentialTips(check.Status); len(tips) > 0 {
				p.Blank()
				step.Section("What to do:")
				step.Bullets(tips...)
			}
		}
	}

	p.Blank()
	p.Rule()
	if !ok {
		p.Fail("Some checks failed")
		return ErrChecksFailed
	}
	p.OK("All checks passed!")
	return nil
}

func (d *Doctor) credentials(ctx context.Context, cfg config.Config) pipeline.CredentialCheck {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	executor := pipeline.NewExecutor(d.log(), d.gateway(cfg), cfg.PipelineSettings())
	return executor.ValidateCredentials(ctx)
}

// probe opens one broadcaster connection and closes it again.
func (d *Doctor) probe(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	client := broadcaster.NewClient(cfg.ClientConfig(), noopHandler{}, broadcaster.WithLogger(d.log()))
	defer client.Stop()
	return client.Connect(ctx)
}

// Status prints a summary of the loaded configuration.
func (d *Doctor) Status() error {
	p := ui.New(d.Out)

	cfg, err := config.Load(d.ConfigPath)
	if err != nil {
		p.Fail("Config error: %v", err)
		return err
	}

	journal := "disabled"
	if cfg.Journal.Enabled {
		journal = cfg.Journal.Driver + " (" + cfg.Journal.DSN + ")"
	}

	p.Title("Signal SDK Status")
	p.Table([][2]string{
		{"Broadcaster URL", cfg.Broadcaster.URL},
		{"Client ID", cfg.Broadcaster.ClientID},
		{"Trade Amount", strconv.FormatFloat(cfg.Trading.TradeAmount, 'f', -1, 64) + " USDT"},
		{"Max Leverage", strconv.Itoa(cfg.Trading.MaxLeverage) + "x"},
		{"Auto Execute", onOff(cfg.Trading.AutoExecute)},
		{"Trading", onOff(cfg.Trading.Enabled)},
		{"Journal", journal},
	})

	if problems := cfg.Validate(); len(problems) > 0 {
		p.Blank()
		p.Warn("Configuration has %d problem(s), run 'signal-sdk doctor'", len(problems))
	}
	return nil
}

// Test connects to the broadcaster once.
func (d *Doctor) Test(ctx context.Context) error {
	p := ui.New(d.Out)

	cfg, err := config.Load(d.ConfigPath)
	if err != nil {
		p.Fail("Config error: %v", err)
		return err
	}

	p.Dim("Testing connection...")
	if err := d.probe(ctx, cfg); err != nil {
		p.Fail("Connection failed: %v", err)
		return err
	}
	p.OK("Connection successful!")
	return nil
}

func credentialTips(status pipeline.CredentialStatus) []string {
	switch status {
	case pipeline.CredentialsInvalid:
		return []string{
			"Go to Mudrex → Settings → API Management",
			"Copy your API Secret (the entire long string)",
			"Update your config file with the correct secret",
			"Make sure you copied all characters",
		}
	case pipeline.CredentialsForbidden:
		return []string{
			"Go to Mudrex → Settings → API Management",
			"Click on your API key to edit it",
			"Enable 'Futures Trading' permission",
			"Save and try again",
		}
	case pipeline.CredentialsTransient:
		return []string{
			"Check your internet connection",
			"Wait a few minutes and try again",
			"The Mudrex service may be temporarily down",
		}
	}
	return nil
}

func isPlaceholderURL(url string) bool {
	return strings.Contains(url, "your-broadcaster") || strings.Contains(url, "example")
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// noopHandler ignores everything; the probe never reads frames.
type noopHandler struct{}

func (noopHandler) OnConnected(context.Context) {}
func (noopHandler) OnDisconnected(context.Context, error) {}
func (noopHandler) OnSignal(context.Context, model.Signal) {}
func (noopHandler) OnClose(context.Context, model.CloseCommand) {}
func (noopHandler) OnEditSLTP(context.Context, model.EditSLTPCommand) {}
func (noopHandler) OnLeverage(context.Context, model.LeverageCommand) {}
