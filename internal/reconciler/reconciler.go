// Package reconciler derives account balances from the ledger itself.
//
// The functions here are the single authoritative definition of "correct
// balance": the sum of signed flow amounts referencing an account, eliminate
// flag ignored. Account.Balance is only ever a cache of this computation,
// refreshed either by the exact delta a write applies or by Repair.
package reconciler

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/bookkeep/internal/metrics"
	"github.com/mmynk/bookkeep/internal/storage"
)

// Report compares an account's cached balance with the recomputed value.
type Report struct {
	AccountID string
	Stored    decimal.Decimal
	Computed  decimal.Decimal
	Valid     bool
}

// Recompute returns the account's balance as derived from its flows. It is
// a pure function of ledger state and safe to call any number of times.
// Returns models.ErrNotFound (wrapped) if the account does not exist.
//
// Callers pass whichever store they hold: the plain one for standalone
// checks, a transaction-scoped one when repairing mid-mutation.
func Recompute(ctx context.Context, store storage.Store, accountID string) (decimal.Decimal, error) {
	// Existence check first: an account with no flows legitimately
	// recomputes to zero, which must not be confused with "no account".
	if _, err := store.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	return store.SumFlowsByAccount(ctx, accountID)
}

// Validate compares the stored balance against the recomputed one without
// mutating anything.
func Validate(ctx context.Context, store storage.Store, accountID string) (*Report, error) {
	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	computed, err := store.SumFlowsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Report{
		AccountID: accountID,
		Stored:    account.Balance,
		Computed:  computed,
		Valid:     account.Balance.Equal(computed),
	}, nil
}

// Repair recomputes the balance and overwrites the cache unconditionally.
// Used whenever incremental deltas can no longer be trusted.
func Repair(ctx context.Context, store storage.Store, accountID string) (decimal.Decimal, error) {
	computed, err := Recompute(ctx, store, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := store.SetAccountBalance(ctx, accountID, computed); err != nil {
		return decimal.Zero, err
	}
	metrics.BalanceRepairs.Inc()
	slog.Debug("Repaired account balance", "account_id", accountID, "balance", computed)
	return computed, nil
}
