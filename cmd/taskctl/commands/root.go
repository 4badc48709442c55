// Package commands implements the taskctl command tree.
package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/config"
	"github.com/nomis52/taskboard/logging"
)

type globalFlags struct {
	configPath string
	verbose    bool
	json       bool
}

// env holds what every engine command needs, built from the config file.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	engine *engineclient.Client
}

// NewRootCommand builds the taskctl command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "taskctl works process engine tasks from the command line",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log at the configured level instead of warn")
	rootCmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Print JSON instead of a table")

	AddTaskCommands(rootCmd, flags)
	AddProgressCommand(rootCmd, flags)
	AddIdentityCommands(rootCmd, flags)
	AddVersionCommand(rootCmd)

	return rootCmd
}

// load reads the config and creates the engine client. Logs go to stderr so
// they never mix with command output.
func (f *globalFlags) load() (*env, error) {
	if f.configPath == "" {
		return nil, errors.New("config flag (-c or --config) is required")
	}
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	if !f.verbose {
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	engine, err := engineclient.New(cfg.Engine.URL,
		engineclient.WithLogger(logger.Logger),
		engineclient.WithTimeout(cfg.Engine.Timeout),
		engineclient.WithRateLimit(cfg.Engine.RequestsPerSecond, cfg.Engine.Burst),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine client: %w", err)
	}

	return &env{cfg: cfg, logger: logger.Logger, engine: engine}, nil
}
