package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/thv-history-sync/internal/app"
)

func newSyncCmd() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync over every thread and print the report",
		Long: `Run one synchronization over every configured thread and print the report as
JSON on stdout. Failed threads are listed in the report; the command still
exits with status 0 so that one broken thread does not fail a cron job.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmdContext(cmd)

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			report, err := app.RunOnce(ctx, app.WithConfig(cfg))
			if err != nil {
				return err
			}

			summary := report.Summary()
			if summary.Failed > 0 {
				slog.Warn("Sync finished with failures", "failed", summary.Failed, "threads", summary.Threads)
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format report: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	addConfigFlag(cmd, v)
	return cmd
}
