package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/service"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage ledger accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(a),
		newAccountListCommand(a),
		newAccountRemoveCommand(a),
	)
	return cmd
}

func newAccountAddCommand(a *app) *cobra.Command {
	var (
		accountType string
		currency    string
		netWorth    bool
		hidden      bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new account with a zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			accounts := service.NewAccountService(store)
			account, err := accounts.CreateAccount(cmd.Context(), service.CreateAccountParams{
				UserID:           a.userID,
				Name:             args[0],
				Type:             models.AccountType(accountType),
				Currency:         currency,
				CountsInNetWorth: netWorth,
				Hidden:           hidden,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created account %s (%s, %s)\n", account.Name, account.Type, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "cash", "account type: cash, bank, credit, virtual")
	cmd.Flags().StringVar(&currency, "currency", "USD", "account currency")
	cmd.Flags().BoolVar(&netWorth, "net-worth", true, "count this account in net worth")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "hide the account from default listings")

	return cmd
}

func newAccountListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their cached balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			accounts := service.NewAccountService(store)
			list, err := accounts.ListAccounts(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No accounts.")
				return nil
			}

			for _, account := range list {
				marker := ""
				if account.Hidden {
					marker = " (hidden)"
				}
				fmt.Printf("%s  %-20s %-8s %10s %s%s\n",
					account.ID, account.Name, account.Type, account.Balance, account.Currency, marker)
			}
			return nil
		},
	}
}

func newAccountRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <account-id>",
		Short: "Delete an account no ledger record references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			accounts := service.NewAccountService(store)
			if err := accounts.DeleteAccount(cmd.Context(), a.userID, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted account %s\n", args[0])
			return nil
		},
	}
}
