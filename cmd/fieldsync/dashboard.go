package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sreejithpm/fieldsync/internal/dashboard"
)

var dashboardStatsInterval time.Duration

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the WebSocket progress dashboard without the sync daemon",
	Long: `Serve the WebSocket dashboard on dashboard.port and broadcast cache
statistics periodically. Useful when another process (or the daemon on a
different machine profile) drives the syncing and the UI shell only needs the
stats feed.

The daemon command serves this dashboard too; use this standalone form only
when the daemon is not running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		srv := dashboard.NewServer(&dashboard.Config{
			Port:   e.cfg.Dashboard.Port,
			Logger: e.logger,
		})
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()

		fmt.Printf("Dashboard listening on %s\n", srv.Addr())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(dashboardStatsInterval)
		defer ticker.Stop()

		for {
			stats, err := e.store.GetDataStats(ctx)
			if err != nil {
				e.logger.WithError(err).Warn("failed to read cache stats")
			} else {
				srv.BroadcastStats(stats)
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	dashboardCmd.Flags().DurationVar(&dashboardStatsInterval, "stats-interval", 10*time.Second,
		"how often to broadcast cache statistics")
	rootCmd.AddCommand(dashboardCmd)
}
