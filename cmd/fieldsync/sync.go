package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sreejithpm/fieldsync/internal/syncer"
)

var syncForceRefresh bool

var (
	stageDoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stageFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stageInfoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download the server catalog into the local cache",
	Long: `Download customers, areas and the product catalog (with batches,
photos and godowns) from the backend into the local cache.

Customers and areas download in parallel; a failure in one still leaves the
other usable (partial sync). The product payload is retried up to three times
with exponential backoff.

With --force-refresh the server-sourced cache is cleared first. Offline
collections and orders pending upload are never touched by a refresh.`,
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

		// Ctrl-C cancels the in-flight download cooperatively.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := orch.DownloadAll(ctx, syncForceRefresh, printProgress)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("Synced %d customers, %d areas, %d products (%d batches) in %s\n",
			result.Customers, result.Areas, result.Products, result.Batches,
			result.Duration.Round(1e7))
		if result.CustomerErr != nil {
			fmt.Println(stageFailedStyle.Render(fmt.Sprintf("  customers failed: %v", result.CustomerErr)))
		}
		if result.AreaErr != nil {
			fmt.Println(stageFailedStyle.Render(fmt.Sprintf("  areas failed: %v", result.AreaErr)))
		}
		return nil
	},
}

// printProgress renders the stage checklist as the download advances.
func printProgress(p syncer.Progress) {
	switch {
	case p.Err != nil:
		fmt.Printf("%s %s: %v\n", stageFailedStyle.Render("✗"), p.Message, p.Err)
	case p.Completed:
		fmt.Printf("%s %s (%d%%)\n", stageDoneStyle.Render("✓"), p.Message, p.Progress)
	default:
		fmt.Printf("%s %s (%d%%)\n", stageInfoStyle.Render("·"), p.Message, p.Progress)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncForceRefresh, "force-refresh", false,
		"clear the downloaded cache before syncing (pending uploads are kept)")
	rootCmd.AddCommand(syncCmd)
}
