// Package commands implements the CLI commands for the news log analyzer
package commands

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"news-log-analyzer/internal/config"
	"news-log-analyzer/internal/logging"
	"news-log-analyzer/internal/presenter"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	driver     string
	dsn        string
	noColor    bool
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configFile, "config", "c", "", config.ConfigFileDescription)
	flags.StringVar(&o.driver, "driver", "", config.DriverDescription)
	flags.StringVar(&o.dsn, "dsn", "", config.DSNDescription)
	flags.BoolVar(&o.noColor, "no-color", false, config.NoColorDescription)
}

// environment is everything a command needs once flags are parsed
type environment struct {
	cfg    config.Config
	logger *zap.Logger
	out    *presenter.Presenter
}

// setup loads configuration (file, then environment, then flags) and builds
// the logger and presenter for a command writing to out
func (o *globalOptions) setup(out io.Writer) (*environment, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	if o.driver != "" {
		cfg.Database.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Database.DSN = o.dsn
	}
	if o.noColor {
		off := false
		cfg.Output.Color = &off
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:    cfg,
		logger: logger,
		out:    presenter.New(out, cfg.Output.ColorEnabled() && isColorTerminal(out)),
	}, nil
}

// isColorTerminal reports whether out is the process stdout attached to a terminal
func isColorTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && f == os.Stdout && !color.NoColor
}
