package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/service"
)

func newLoansCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Migrate and consolidate legacy loan records",
	}
	cmd.AddCommand(
		newLoansValidateCommand(a),
		newLoansMigrateCommand(a),
		newLoansConsolidateCommand(a),
	)
	return cmd
}

func newLoansValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report pending loan repair work without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			loans := service.NewLoanService(store, service.NewTransferService(store))
			report, err := loans.ValidateConsistency(cmd.Context(), a.userID)
			if err != nil {
				return err
			}

			fmt.Printf("Unlinked loan flows: %d\n", report.UnlinkedLoanFlows)
			fmt.Printf("Linked loan flows:   %d\n", report.LinkedLoanFlows)
			fmt.Printf("Dangling flows:      %d\n", report.DanglingFlows)
			fmt.Printf("Orphan transfers:    %d\n", report.OrphanTransfers)
			for _, id := range report.UnlinkedFlowIDs {
				fmt.Printf("  unlinked: %s\n", id)
			}
			for _, id := range report.DanglingFlowIDs {
				fmt.Printf("  dangling: %s\n", id)
			}
			if report.NeedsProcessing {
				fmt.Println("Repair work pending; run 'bookkeep loans migrate'.")
			} else {
				fmt.Println("Loan data is consistent.")
			}
			return nil
		},
	}
}

func newLoansMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Convert legacy unpaired loan flows into transfer pairs",
		Long: `Convert legacy unpaired loan flows into transfer pairs.

Each matched expense/income pair is rebuilt as one transfer with two
linked halves, with zero net balance effect. Unmatched flows are
reported, not dropped. Orphaned transfer records found along the way
are swept as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stop := a.serveMetrics()
			defer stop()

			loans := service.NewLoanService(store, service.NewTransferService(store))
			result, err := loans.ProcessAllLoanFlows(cmd.Context(), a.userID)
			if err != nil {
				return err
			}

			fmt.Printf("Processed %d loan flows: %d converted, %d failed\n",
				result.Total, result.Success, result.Failed)
			for _, msg := range result.Errors {
				fmt.Printf("  %s\n", msg)
			}
			return nil
		},
	}
}

func newLoansConsolidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate",
		Short: "Collapse duplicate loan transfers to one canonical record",
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
			result, err := loans.ConsolidateDuplicateLoanRecords(cmd.Context(), a.userID)
			if err != nil {
				return err
			}

			fmt.Printf("Merged %d duplicate transfers, rebuilt %d canonical records\n",
				result.TotalMerged, result.CreatedTransfers)
			for _, msg := range result.Errors {
				fmt.Printf("  %s\n", msg)
			}
			return nil
		},
	}
}
