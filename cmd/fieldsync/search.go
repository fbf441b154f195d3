package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sreejithpm/fieldsync/internal/model"
)

var searchDebtorsOnly bool

var searchCmd = &cobra.Command{
	Use:   "search <customers|products> <text>",
	Short: "Search the cached customers or products",
	Long: `Search by case-insensitive substring. Customers match on name,
code, phone or area; products on name, code or barcode. At most 50 results
are returned, ordered by name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()

		switch strings.ToLower(args[0]) {
		case "customers":
			superCode := ""
			if searchDebtorsOnly {
				superCode = model.SuperCodeDebtor
			}
			customers, err := e.store.SearchCustomers(ctx, args[1], superCode)
			if err != nil {
				return err
			}
			if len(customers) == 0 {
				fmt.Println("No customers found")
				return nil
			}
			for _, c := range customers {
				fmt.Printf("%-12s %-30s %-15s %s  %.2f\n", c.Code, c.Name, c.Area, c.Phone, c.Balance)
			}

		case "products":
			products, err := e.store.SearchProducts(ctx, args[1])
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Println("No products found")
				return nil
			}
			for _, p := range products {
				fmt.Printf("%-12s %-40s %-15s %8.2f  stock %.0f\n", p.Code, p.Name, p.Barcode, p.Price, p.Stock)
			}

		default:
			return fmt.Errorf("unknown search target %q (expected customers or products)", args[0])
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchDebtorsOnly, "debtors", false,
		"restrict customer search to sales-eligible debtors")
	rootCmd.AddCommand(searchCmd)
}
