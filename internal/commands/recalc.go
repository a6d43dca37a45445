package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/service"
)

func newRecalcCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Rebuild every cached balance from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stop := a.serveMetrics()
			defer stop()

			loans := service.NewLoanService(store, service.NewTransferService(store))
			result, err := loans.RecalculateAccountBalances(cmd.Context(), a.userID)
			if err != nil {
				return err
			}

			fmt.Printf("Recalculated %d of %d accounts\n", result.Repaired, result.Accounts)
			for _, msg := range result.Errors {
				fmt.Printf("  %s\n", msg)
			}
			return nil
		},
	}
}
