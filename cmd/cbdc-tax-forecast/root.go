package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/validation"
)

// app carries the global flags and the state loaded from them.
type app struct {
	configPath   string
	logLevel     string
	outputFormat string

	out    io.Writer
	conf   *config.Configuration
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "cbdc-tax-forecast",
		Short: "Project how CBDC adoption changes a tax base over time.",
		Long: `cbdc-tax-forecast projects the tax base and tax revenue of two policy scenarios
over a shared horizon, compares their final years and exports the results.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		fmt.Sprintf("config file (default is ./%s or $HOME/%s.yaml)", constants.DefaultConfigFile, constants.HomeConfigName))
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.outputFormat, "output-format", "", "type of output override: pretty, csv, json")

	root.AddCommand(
		a.projectCmd(),
		a.compareCmd(),
		a.reportCmd(),
		a.snapshotCmd(),
		a.indicatorsCmd(),
		a.sweepCmd(),
		a.serveCmd(),
	)
	return root
}

// load reads the configuration, initializes logging and reports configuration
// warnings. It is called by every command that works on the configured session.
func (a *app) load() error {
	path, err := config.ResolvePath(a.configPath)
	if err != nil {
		return err
	}

	conf, err := config.LoadConfiguration(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", path, err)
	}

	logger, err := initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.conf = conf
	a.logger = logger

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.load"),
		)
	}
	return nil
}

// session loads the configuration and builds the A/B session from it.
func (a *app) session() (*scenario.Session, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	session, err := scenario.FromConfiguration(*a.conf)
	if err != nil {
		a.logger.Error("failed to build session",
			zap.String("op", "main.session"),
			zap.Error(err),
		)
		return nil, err
	}
	return session, nil
}

// format returns the output format, CLI override first, then config, then pretty.
func (a *app) format() (string, error) {
	outputFormat := a.conf.Output.Format
	if a.outputFormat != "" {
		outputFormat = a.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return "", err
	}
	return outputFormat, nil
}

// storageDSN returns the configured snapshot store, falling back to the
// default SQLite file.
func (a *app) storageDSN() string {
	if a.conf.Storage.DSN != "" {
		return a.conf.Storage.DSN
	}
	return constants.DefaultStorageDSN
}
