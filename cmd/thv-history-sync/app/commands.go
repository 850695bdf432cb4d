// Package app provides the commands of the thv-history-sync binary.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/versions"
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "thv-history-sync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Incremental chat thread history sync",
		Long: `thv-history-sync mirrors the message history of remote chat threads into a
local per-thread store. Each run compares local and remote counts and downloads
only the missing messages, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			slog.Info("thv-history-sync version",
				"version", info.Version,
				"commit", info.Commit,
				"built", info.BuildDate,
				"go", info.GoVersion,
				"platform", info.Platform)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// newViper returns a viper instance reading THV_HISTORY_* variables. Each
// command gets its own so flag bindings do not collide.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	return v
}

// addConfigFlag registers --config and binds it to v under "config", so
// THV_HISTORY_CONFIG works as well
func addConfigFlag(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := v.BindPFlag("config", cmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
	}
}

// cmdContext returns the command context, falling back to Background
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	path := v.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("a configuration file is required (--config or %s_CONFIG)", config.EnvPrefix)
	}
	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", path, "storage", cfg.Storage.Type)
	return cfg, nil
}
