package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sreejithpm/fieldsync/internal/daemon"
	"github.com/sreejithpm/fieldsync/internal/dashboard"
)

var daemonNoDashboard bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the auto-sync daemon",
	Long: `Run the background sync loop: pending offline collections and
orders are uploaded every minute and the catalog is refreshed periodically
(see daemon.refresh_interval).

Unless --no-dashboard is given, a WebSocket dashboard is served on
dashboard.port so a UI shell can follow sync progress live. A daemon cycle
and a manually triggered sync share one in-flight guard and never overlap.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		orch, err := e.orchestrator()
		if err != nil {
			return err
		}

		dcfg := daemon.DefaultConfig()
		dcfg.Logger = e.logger
		if e.cfg.Daemon.RefreshInterval > 0 {
			dcfg.RefreshInterval = e.cfg.Daemon.RefreshInterval
		}
		if e.cfg.Daemon.UploadInterval > 0 {
			dcfg.UploadInterval = e.cfg.Daemon.UploadInterval
		}

		d := daemon.New(orch, dcfg)

		if !daemonNoDashboard {
			srv := dashboard.NewServer(&dashboard.Config{
				Port:   e.cfg.Dashboard.Port,
				Logger: e.logger,
			})
			if err := srv.Start(); err != nil {
				return err
			}
			defer srv.Stop()

			d.OnProgress = srv.ProgressFunc()
			d.OnUpload = srv.BroadcastUpload
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonNoDashboard, "no-dashboard", false, "do not serve the progress dashboard")
	rootCmd.AddCommand(daemonCmd)
}
