package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/thv-history-sync/database"
	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/db"
)

func newMigrateCmd() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long: `Manage the PostgreSQL catalog schema. Use with 'up' or 'down'.
Only the postgres storage type has migrations; thread tables themselves are
created on demand by the sync.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	cmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate down (0 = all)")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := v.BindPFlag("config", cmd.PersistentFlags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, v)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert database migrations",
		Long: `Revert migrations of the catalog schema.
WARNING: reverting the catalog loses the thread to table mapping.

Examples:
  # Revert one step
  thv-history-sync migrate down --config config.yaml --num-steps 1 --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateDown(cmd, v)
		},
	})

	return cmd
}

// migrationTarget loads the config and returns the postgres connection string
func migrationTarget(ctx context.Context, v *viper.Viper) (*config.DatabaseConfig, string, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, "", err
	}
	if cfg.Storage.Type != config.StorageTypePostgres || cfg.Storage.Database == nil {
		return nil, "", fmt.Errorf("migrations require storage type %s with a database block", config.StorageTypePostgres)
	}
	connString, err := db.MigrationConnectionString(ctx, cfg.Storage.Database)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build connection string: %w", err)
	}
	return cfg.Storage.Database, connString, nil
}

func runMigrateUp(cmd *cobra.Command, v *viper.Viper) error {
	dbCfg, connString, err := migrationTarget(cmdContext(cmd), v)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("Apply migrations to %s@%s:%d/%s?", dbCfg.User, dbCfg.Host, dbCfg.Port, dbCfg.Database)
	if ok, err := confirmed(cmd, prompt); err != nil || !ok {
		return err
	}

	slog.Info("Applying database migrations...")
	if err := database.MigrateUp(connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logVersion(connString)
	return nil
}

func runMigrateDown(cmd *cobra.Command, v *viper.Viper) error {
	_, connString, err := migrationTarget(cmdContext(cmd), v)
	if err != nil {
		return err
	}

	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	prompt := fmt.Sprintf("WARNING: this reverts %d migration step(s). Continue?", numSteps)
	if numSteps == 0 {
		prompt = "WARNING: this reverts ALL migrations. Continue?"
	}
	if ok, err := confirmed(cmd, prompt); err != nil || !ok {
		return err
	}

	if err := database.MigrateDown(connString, numSteps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logVersion(connString)
	return nil
}

// confirmed asks on stdin unless --yes was given. A declined prompt is not an error.
func confirmed(cmd *cobra.Command, prompt string) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}

	ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	if err != nil {
		return false, err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
	}
	return ok, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s (yes/no): ", prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func logVersion(connString string) {
	version, dirty, err := database.GetVersion(connString)
	switch {
	case err != nil:
		slog.Warn("Unable to get migration version", "error", err)
	case dirty:
		slog.Warn("Database is in a dirty state", "version", version)
	default:
		slog.Info("Migrations complete", "version", version)
	}
}
