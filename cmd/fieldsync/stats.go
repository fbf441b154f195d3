package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents and pending upload counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()

		stats, err := e.store.GetDataStats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Customers:            %d\n", stats.Customers)
		fmt.Printf("Products:             %d\n", stats.Products)
		fmt.Printf("Batches:              %d\n", stats.Batches)
		fmt.Printf("Areas:                %d\n", stats.Areas)
		fmt.Printf("Offline collections:  %d (%d pending)\n", stats.OfflineCollections, stats.PendingCollections)
		fmt.Printf("Offline orders:       %d (%d pending)\n", stats.OfflineOrders, stats.PendingOrders)

		last, err := e.store.LastSyncTime(ctx)
		if err == nil && !last.IsZero() {
			fmt.Printf("Last sync:            %s\n", last.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last sync:            never")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
