package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/service"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compare cached balances against the ledger",
		Long: `Compare cached balances against the ledger.

Read-only: accounts whose cached balance drifts from the sum of their
entries are listed with both values. Run 'bookkeep recalc' to fix them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			checker := service.NewConsistencyService(store)
			report, err := checker.ValidateUserAccounts(cmd.Context(), a.userID)
			if err != nil {
				return err
			}

			if len(report.Drifted) == 0 {
				fmt.Printf("All %d accounts consistent.\n", report.Checked)
				return nil
			}
			fmt.Printf("%d of %d accounts drifted:\n", len(report.Drifted), report.Checked)
			for _, drift := range report.Drifted {
				fmt.Printf("  %s: stored %s, computed %s\n",
					drift.AccountID, drift.Stored, drift.Computed)
			}
			return nil
		},
	}
}
