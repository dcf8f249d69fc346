package cli

import (
	"context"
	"fmt"

	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"github.com/spf13/cobra"
)

// cliOverrides maps changed persistent flags onto configuration paths.
func cliOverrides(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		flags["runtime.log_level"] = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("log-json")
		flags["runtime.log_json"] = v
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("port")
		flags["server.port"] = v
	}
	return flags
}

// SetupGlobalConfig loads the env file and configuration, configures the
// logger and stores both in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.NewService().Load(ctx,
		config.NewYAMLProvider(configFile),
		config.NewCLIProvider(cliOverrides(cmd)),
	)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logSource, err := cmd.Flags().GetBool("log-source")
	if err != nil {
		return fmt.Errorf("failed to get log-source flag: %w", err)
	}
	logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, logSource)

	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	cmd.SetContext(ctx)
	return nil
}
