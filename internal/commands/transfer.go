package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/service"
)

func newTransferCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between accounts as atomic pairs",
	}
	cmd.AddCommand(
		newTransferAddCommand(a),
		newTransferRemoveCommand(a),
	)
	return cmd
}

func newTransferAddCommand(a *app) *cobra.Command {
	var (
		date         string
		from         string
		to           string
		loanType     string
		counterparty string
		name         string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Create a transfer pair between two accounts",
		Long: `Create a transfer pair between two accounts.

One transfer record and two linked entries are written atomically:
an expense on the source account and an income on the destination,
both excluded from statistics. A --loan-type marks the movement as a
loan event and requires --counterparty.`,
		Args: cobra.ExactArgs(1),
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
			transfer, err := engine.CreateTransfer(cmd.Context(), service.CreateTransferParams{
				UserID:        a.userID,
				BookID:        a.bookID,
				Date:          date,
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        amount,
				LoanType:      models.LoanType(loanType),
				Counterparty:  counterparty,
				Name:          name,
				Description:   description,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created transfer %s: %s from %s to %s\n",
				transfer.ID, transfer.Amount, transfer.FromAccountID, transfer.ToAccountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "transfer date, YYYY-MM-DD")
	cmd.Flags().StringVar(&from, "from", "", "source account id")
	cmd.Flags().StringVar(&to, "to", "", "destination account id")
	cmd.Flags().StringVar(&loanType, "loan-type", "", "loan type: borrow, lend, collect, repay")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "loan counterparty")
	cmd.Flags().StringVar(&name, "name", "", "short label")
	cmd.Flags().StringVar(&description, "description", "", "free-form note")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func newTransferRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <transfer-id>",
		Short: "Delete a transfer pair and reverse both balance deltas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			engine := service.NewTransferService(store)
			if err := engine.DeleteTransfer(cmd.Context(), a.userID, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted transfer %s\n", args[0])
			return nil
		},
	}
}
