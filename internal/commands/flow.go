package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/service"
)

func newFlowCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Record and remove individual ledger entries",
	}
	cmd.AddCommand(
		newFlowAddCommand(a),
		newFlowRemoveCommand(a),
	)
	return cmd
}

func newFlowAddCommand(a *app) *cobra.Command {
	var (
		kind          string
		date          string
		category      string
		paymentMethod string
		counterparty  string
		accountID     string
		eliminate     bool
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record an income or expense entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("%w: amount %q: %v", models.ErrInvalidArgument, args[0], err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			engine := service.NewTransferService(store)
			flow, err := engine.AddFlow(cmd.Context(), service.AddFlowParams{
				UserID:        a.userID,
				BookID:        a.bookID,
				Date:          date,
				Kind:          models.FlowKind(kind),
				Category:      category,
				PaymentMethod: paymentMethod,
				Counterparty:  counterparty,
				Amount:        amount,
				AccountID:     accountID,
				Eliminate:     eliminate,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Recorded %s of %s (%s)\n", flow.Kind, flow.Amount, flow.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "expense", "entry kind: income or expense")
	cmd.Flags().StringVar(&date, "date", "", "entry date, YYYY-MM-DD")
	cmd.Flags().StringVar(&category, "category", "", "entry category")
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "", "payment method")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "counterparty name")
	cmd.Flags().StringVar(&accountID, "account", "", "account the entry applies to")
	cmd.Flags().BoolVar(&eliminate, "eliminate", false, "exclude from income/expense statistics")
	cmd.MarkFlagRequired("date")

	return cmd
}

func newFlowRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <flow-id>",
		Short: "Delete a ledger entry and reverse its balance effect",
		Long: `Delete a ledger entry and reverse its balance effect.

An entry that is half of a transfer pair removes the whole pair;
half-deletion is never a valid state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			engine := service.NewTransferService(store)
			if err := engine.DeleteFlow(cmd.Context(), a.userID, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted flow %s\n", args[0])
			return nil
		},
	}
}
