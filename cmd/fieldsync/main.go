// Command fieldsync manages the offline catalog cache for the field-sales
// app: downloading the server catalog into the local database, uploading
// offline-created collections and orders, and serving sync progress to a UI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
