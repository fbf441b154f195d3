package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload pending offline collections and orders",
	Long: `Upload every unsynced offline collection, then every unsynced
offline order, one record at a time. A record is marked synced only after the
server acknowledges it; failed records stay queued for the next pass.`,
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := orch.UploadPending(ctx)
		if err != nil {
			return err
		}

		total := result.Total() + result.Pending()
		if total == 0 {
			fmt.Println("Nothing to upload")
			return nil
		}

		fmt.Printf("Uploaded %d of %d records (collections %d/%d, orders %d/%d)\n",
			result.Total(), total,
			result.CollectionsUploaded, result.CollectionsUploaded+result.CollectionsFailed,
			result.OrdersUploaded, result.OrdersUploaded+result.OrdersFailed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
