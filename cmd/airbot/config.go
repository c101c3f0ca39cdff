package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/pkg/env"
	"github.com/spf13/cobra"
)

var forceConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the runtime configuration",
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Write the effective configuration to the runtime .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLoggerTo(cmd.Context(), os.Stderr)
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}
		appCfg := config.NewAppConfig(ctx)
		path := appCfg.GetEnvPath()
		if _, err := os.Stat(path); err == nil && !forceConfig {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		content, err := renderEnv(
			appCfg,
			config.NewLLMConfig(ctx),
			config.NewStoreConfig(ctx),
			config.NewRetrievalConfig(ctx),
			config.NewSessionConfig(ctx),
			config.NewHTTPConfig(ctx),
		)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(appCfg.RuntimePath, 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceConfig, "force", "f", false, "overwrite an existing .env")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func renderEnv(sections ...any) (string, error) {
	var sb strings.Builder
	for _, s := range sections {
		part, err := env.MarshalEnv(s)
		if err != nil {
			return "", err
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}
