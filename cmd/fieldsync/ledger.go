package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sreejithpm/fieldsync/internal/ledger"
)

var (
	ledgerBalance string
	ledgerCash    bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger [entries.json]",
	Short: "Derive daily opening/closing balances from a transaction list",
	Long: `Read a JSON array of ledger entries ({entry_date, particulars,
debit, credit, voucher_no}) from a file or stdin and reconstruct each day's
opening and closing balance, walking backward from the known current balance
given with --balance.

The server only reports the present balance, so history is derived on the
client. Bank and customer ledgers move by debit minus credit; pass --cash for
the cash-book convention (credit minus debit).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("failed to read entries: %w", err)
		}

		var entries []ledger.Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to parse entries: %w", err)
		}

		balance, err := decimal.NewFromString(ledgerBalance)
		if err != nil {
			return fmt.Errorf("invalid --balance %q: %w", ledgerBalance, err)
		}

		conv := ledger.DebitMinusCredit
		if ledgerCash {
			conv = ledger.CreditMinusDebit
		}

		result := ledger.ComputeDailyBalances(entries, balance, conv)
		if len(result.Days) == 0 {
			fmt.Println("No dated entries")
			return nil
		}

		fmt.Printf("%-12s %12s %12s %12s %12s\n", "Date", "Opening", "Debit", "Credit", "Closing")
		for _, day := range result.Days {
			fmt.Printf("%-12s %12s %12s %12s %12s\n",
				day.Date,
				day.Opening.StringFixed(2),
				day.Debit.StringFixed(2),
				day.Credit.StringFixed(2),
				day.Closing.StringFixed(2))
		}
		return nil
	},
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerBalance, "balance", "0", "known current closing balance")
	ledgerCmd.Flags().BoolVar(&ledgerCash, "cash", false, "use the cash-book sign convention")
	rootCmd.AddCommand(ledgerCmd)
}
