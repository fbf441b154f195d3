package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearAll bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the downloaded cache",
	Long: `Clear the server-sourced cache (customers, products, batches,
photos, godowns, areas). Offline collections and orders pending upload are
preserved.

With --all, everything is wiped, including pending uploads that were never
sent to the server. This cannot be undone, so --all asks for confirmation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()

		if !clearAll {
			if err := e.store.ClearDownloadableData(ctx); err != nil {
				return err
			}
			fmt.Println("Downloaded cache cleared; pending uploads kept")
			return nil
		}

		stats, err := e.store.GetDataStats(ctx)
		if err != nil {
			return err
		}
		if stats.HasPendingUploads() {
			fmt.Printf("WARNING: %d collections and %d orders have not been uploaded and will be lost.\n",
				stats.PendingCollections, stats.PendingOrders)
		}
		fmt.Print("Clear ALL data? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted")
			return nil
		}

		if err := e.store.ClearAllData(ctx); err != nil {
			return err
		}
		fmt.Println("All data cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "also delete offline collections/orders pending upload")
	rootCmd.AddCommand(clearCmd)
}
