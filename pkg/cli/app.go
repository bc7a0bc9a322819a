package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/riskpulse/pkg/config"
	"github.com/mchmarny/riskpulse/pkg/data"
	"github.com/mchmarny/riskpulse/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "riskpulse"
	appConfigKey = "app-config"
)

const (
	flagDebug    = "debug"
	flagLogLevel = "log-level"
	flagConfig   = "config"
	flagFormat   = "format"
	flagDB       = "db"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

func rootFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.BoolFlag{
			Name:  flagDebug,
			Usage: "Prints verbose logs (optional, default: false)",
		},
		&urfave.StringFlag{
			Name:  flagLogLevel,
			Usage: "Log level [debug, info, warn, error]",
			Value: "info",
		},
		&urfave.StringFlag{
			Name:  flagConfig,
			Usage: "Path to the config file (optional, defaults to $HOME/.riskpulse/config.yaml)",
		},
		&urfave.StringFlag{
			Name:  flagFormat,
			Usage: "Output format [json, yaml] (optional, overrides config)",
		},
		&urfave.StringFlag{
			Name:  flagDB,
			Usage: "Path to the Sqlite run history file (optional, overrides config)",
		},
	}
}

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info", false)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Config *config.Config
	Format string
	Out    io.Writer
	store  *data.Store
}

// Store opens the run history on first use.
func (a *appConfig) Store() (*data.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	var (
		s   *data.Store
		err error
	)
	if a.Config.Store.Driver == data.DriverSQLite {
		s, err = data.OpenFile(a.Config.Store.DSN)
	} else {
		s, err = data.Open(a.Config.Store.Driver, a.Config.Store.DSN)
	}
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	a.store = s
	return s, nil
}

func (a *appConfig) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Debug("error closing store", "error", err)
		}
		a.store = nil
	}
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Credit risk scoring, stress testing and portfolio expected loss",
		Metadata:              map[string]any{},
		Flags:                 rootFlags(),
		Commands: []*urfave.Command{
			newGenerateCmd(),
			newEvaluateCmd(),
			newAssessCmd(),
			newCompareCmd(),
			newHistoryCmd(),
			newServerCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			logging.SetDefaultCLILogger(cmd.String(flagLogLevel), cmd.Bool(flagDebug))

			cfg, err := loadConfig(cmd.String(flagConfig))
			if err != nil {
				return ctx, err
			}

			if cmd.IsSet(flagFormat) {
				cfg.Output.Format = cmd.String(flagFormat)
			}
			format, err := config.ParseFormat(cfg.Output.Format)
			if err != nil {
				return ctx, err
			}

			if p := cmd.String(flagDB); p != "" {
				cfg.Store.Driver = data.DriverSQLite
				cfg.Store.DSN = p
			}

			cmd.Root().Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Format: format,
				Out:    cmd.Root().Writer,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *urfave.Command) error {
			if cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok {
				cfg.close()
			}
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return c, nil
	}

	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		dir = filepath.Join(".", config.AppDirName)
	}
	c, err := config.ReadOrCreate(dir)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return c, nil
}

func (a *appConfig) encode(v any) error {
	w := a.Out
	if w == nil {
		w = os.Stdout
	}
	if a.Format == config.FormatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
