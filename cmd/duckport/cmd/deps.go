package cmd

import (
	"fmt"

	"github.com/barysiuk/duckport/internal/core"
	"github.com/barysiuk/duckport/internal/logger"
	"github.com/spf13/cobra"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	config *core.ConfigManager
	orch   *core.Orchestrator
}

// newDeps loads the config for cmd, binding its flags, and applies the
// logging settings. Called by every command that converts or cleans.
func newDeps(cmd *cobra.Command) (*deps, error) {
	config, err := core.NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		config.SetConfigFile(path)
	}
	if err := config.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := config.Load(); err != nil {
		return nil, err
	}

	if err := logger.SetLogLevel(config.LogLevel()); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel(), err)
	}
	logger.SetLogFormat(config.LogFormat())

	return &deps{
		config: config,
		orch:   core.NewOrchestrator(),
	}, nil
}
