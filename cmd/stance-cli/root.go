package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stance/internal/app"
	"github.com/bobmcallan/stance/internal/common"
)

var rootCmd = &cobra.Command{
	Use:   "stance-cli",
	Short: "Company analysis from the command line",
	Long: `Stance computes ratios, integrity checks and an investment stance for a
listed company, with optional AI commentary. Commands run in-process against
the configured data provider and share the server's cache.`,
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
	timeout    time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (default: STANCE_CONFIG, then stance.toml beside the binary)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for command output on stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Deadline for the whole command")

	rootCmd.AddCommand(analyzeCmd, insightsCmd, searchCmd, reportCmd, cacheCmd, tokenCmd, versionCmd)
}

func loadConfig() (*common.Config, error) {
	common.LoadVersionFromFile()
	config, err := common.LoadConfig(app.ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

// loadApp builds the application with console logging only; the CLI never
// writes the server's log file.
func loadApp() (*app.App, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	config.Logging.Level = logLevel
	config.Logging.Outputs = []string{"console"}
	return app.NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
