package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"signalexecutor/cmd/doctor"
	"signalexecutor/cmd/executor"
	"signalexecutor/cmd/history"
	"signalexecutor/cmd/keys"
	"signalexecutor/cmd/ui"
	"signalexecutor/src/config"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "signal-sdk"
	app.Usage = "Execute broadcast trading signals on Mudrex futures"
	app.Version = Version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  config.DefaultPath,
			Usage:  "path to the YAML config file",
			EnvVar: "CONFIG_PATH",
		},
	}

	app.Commands = []cli.Command{
		startCMD,
		doctorCMD,
		statusCMD,
		testCMD,
		historyCMD,
		initCMD,
		keysCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	startCMD = cli.Command{
		Name:        "start",
		Usage:       "run the signal executor",
		Action:      startAction,
		Description: `Connect to the broadcaster and execute signals until interrupted`,
	}
	doctorCMD = cli.Command{
		Name:        "doctor",
		Usage:       "diagnose configuration and connectivity",
		Action:      doctorAction,
		Description: `Check the config file, the broadcaster connection and the Mudrex credentials`,
	}
	statusCMD = cli.Command{
		Name:   "status",
		Usage:  "show the loaded configuration",
		Action: statusAction,
	}
	testCMD = cli.Command{
		Name:   "test",
		Usage:  "test the broadcaster connection",
		Action: testAction,
	}
	historyCMD = cli.Command{
		Name:   "history",
		Usage:  "show journaled trades",
		Action: historyAction,
		Flags: []cli.Flag{
			cli.IntFlag{Name: "limit, n", Value: 20, Usage: "number of rows"},
			cli.StringFlag{Name: "signal", Usage: "only show results for this signal id"},
			cli.BoolFlag{Name: "errors", Usage: "show captured errors instead of trades"},
		},
	}
	initCMD = cli.Command{
		Name:   "init",
		Usage:  "write an example config file",
		Action: initAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "force, f", Usage: "overwrite an existing file"},
		},
	}
	keysCMD = cli.Command{
		Name:  "keys",
		Usage: "encrypt the Mudrex API secret",
		Subcommands: []cli.Command{
			{
				Name:   "generate",
				Usage:  "print a new credentials key",
				Action: keysGenerateAction,
			},
			{
				Name:      "encrypt",
				Usage:     "encrypt a secret with CREDENTIALS_KEY",
				ArgsUsage: "[reads the secret from stdin when --secret is not set]",
				Action:    keysEncryptAction,
				Flags: []cli.Flag{
					cli.StringFlag{Name: "key", Usage: "credentials key, defaults to CREDENTIALS_KEY"},
					cli.StringFlag{Name: "secret", Usage: "secret to encrypt"},
				},
			},
		},
	}
)

func configPath(c *cli.Context) string {
	if p := c.GlobalString("config"); p != "" {
		return p
	}
	return config.DefaultPath
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func startAction(c *cli.Context) error {
	logrus.WithField("cmd", "start").Info("Starting executor CMD")

	exec := &executor.Executor{ConfigPath: configPath(c)}
	if err := exec.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func doctorAction(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()
	return doctor.New(os.Stdout, configPath(c)).Run(ctx)
}

func statusAction(c *cli.Context) error {
	return doctor.New(os.Stdout, configPath(c)).Status()
}

func testAction(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()
	return doctor.New(os.Stdout, configPath(c)).Test(ctx)
}

func historyAction(c *cli.Context) error {
	cfg, err := config.Load(configPath(c))
	if err != nil {
		return err
	}
	return history.New(os.Stdout, cfg).Print(context.Background(), history.Options{
		Limit:    c.Int("limit"),
		SignalID: c.String("signal"),
		Errors:   c.Bool("errors"),
	})
}

func initAction(c *cli.Context) error {
	path := configPath(c)
	p := ui.New(os.Stdout)

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		p.Warn("%s already exists, use --force to overwrite", path)
		return fmt.Errorf("config file %s already exists", path)
	}

	if err := config.Example().SaveToFile(path); err != nil {
		p.Fail("Error: %v", err)
		return err
	}

	p.OK("Config generated: %s", path)
	p.Blank()
	p.Section("Next steps:")
	_, _ = fmt.Fprintf(os.Stdout, "1. Edit %s with your credentials\n", path)
	_, _ = fmt.Fprintln(os.Stdout, "2. Run: signal-sdk start")
	p.Blank()
	p.Dim("Tip: run 'signal-sdk doctor' to check the result")
	return nil
}

func keysGenerateAction(_ *cli.Context) error {
	return keys.Generate(os.Stdout)
}

func keysEncryptAction(c *cli.Context) error {
	return keys.Encrypt(os.Stdout, os.Stdin, c.String("key"), c.String("secret"))
}
