package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/bookkeep/internal/metrics"
	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/reconciler"
	"github.com/mmynk/bookkeep/internal/storage"
)

// loanKey is the deterministic equality key for duplicate detection: two
// loan transfers describing the same economic event agree on counterparty,
// amount, date, loan type, and the unordered account pair.
type loanKey struct {
	counterparty string
	amount       string
	date         string
	loanType     models.LoanType
	accountLo    string
	accountHi    string
}

func keyForTransfer(t *models.Transfer) loanKey {
	lo, hi := t.FromAccountID, t.ToAccountID
	if lo > hi {
		lo, hi = hi, lo
	}
	return loanKey{
		counterparty: t.Counterparty,
		amount:       t.Amount.String(),
		date:         t.Date,
		loanType:     t.LoanType,
		accountLo:    lo,
		accountHi:    hi,
	}
}

// ConsolidateResult summarizes a duplicate-consolidation run.
type ConsolidateResult struct {
	// TotalMerged is the number of redundant transfers deleted.
	TotalMerged int
	// CreatedTransfers is the number of canonical transfers that had to
	// be rebuilt because their own pair was damaged.
	CreatedTransfers int
	// Errors holds one message per group member that failed.
	Errors []string
}

// ConsolidateDuplicateLoanRecords collapses duplicate loan transfers to a
// single canonical record per equality key. Redundant records are deleted
// through the engine so their balances unwind correctly; the post-state of
// every involved account equals what one correctly-recorded transfer would
// have produced. Tie-break: the earliest-created record is canonical.
func (s *LoanService) ConsolidateDuplicateLoanRecords(ctx context.Context, userID string) (*ConsolidateResult, error) {
	transfers, err := s.store.ListLoanTransfersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The store returns transfers earliest-created first, so the head of
	// each group is already the canonical choice.
	groups := make(map[loanKey][]*models.Transfer)
	var order []loanKey
	for _, transfer := range transfers {
		key := keyForTransfer(transfer)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], transfer)
	}

	result := &ConsolidateResult{}
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		s.consolidateGroup(ctx, userID, group, result)
	}

	slog.Info("Loan consolidation finished",
		"user_id", userID,
		"merged", result.TotalMerged,
		"recreated", result.CreatedTransfers,
		"errors", len(result.Errors),
	)
	return result, nil
}

// consolidateGroup collapses one duplicate group. Every deletion is its own
// transaction through the engine, so one bad record cannot roll back the
// rest of the group, let alone other groups.
func (s *LoanService) consolidateGroup(ctx context.Context, userID string, group []*models.Transfer, result *ConsolidateResult) {
	canonical := group[0]
	if group[1].CreatedAt == canonical.CreatedAt {
		// Equal creation times make the canonical choice ambiguous; the
		// id ordering keeps it deterministic, but say so out loud
		// instead of guessing silently.
		slog.Warn("Duplicate loan transfers share a creation time; keeping the lowest id",
			"canonical", canonical.ID, "duplicate", group[1].ID)
	}

	for _, duplicate := range group[1:] {
		err := s.transfers.DeleteTransfer(ctx, userID, duplicate.ID)
		if err != nil && !errors.Is(err, models.ErrAmbiguousState) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("duplicate transfer %s: %v", duplicate.ID, err))
			continue
		}
		// An ambiguous duplicate was still cleaned up and its accounts
		// repaired, which is all consolidation needs from it.
		result.TotalMerged++
		metrics.LoanDuplicatesMerged.Inc()
		slog.Info("Duplicate loan transfer merged",
			"canonical", canonical.ID, "removed", duplicate.ID)
	}

	// The canonical record survives, but only if its own pair is intact.
	// A damaged canonical is torn down and rebuilt through the create path.
	flows, err := s.store.ListFlowsByTransfer(ctx, canonical.ID)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("canonical transfer %s: %v", canonical.ID, err))
		return
	}
	if healthyPair(canonical, flows) {
		return
	}

	bookID := ""
	if len(flows) > 0 {
		bookID = flows[0].BookID
	}
	err = s.transfers.DeleteTransfer(ctx, userID, canonical.ID)
	if err != nil && !errors.Is(err, models.ErrAmbiguousState) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("canonical transfer %s: %v", canonical.ID, err))
		return
	}
	rebuilt, err := s.transfers.CreateTransfer(ctx, CreateTransferParams{
		UserID:        userID,
		BookID:        bookID,
		Date:          canonical.Date,
		FromAccountID: canonical.FromAccountID,
		ToAccountID:   canonical.ToAccountID,
		Amount:        canonical.Amount,
		LoanType:      canonical.LoanType,
		Counterparty:  canonical.Counterparty,
		Name:          canonical.Name,
		Description:   canonical.Description,
	})
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("rebuilding canonical transfer %s: %v", canonical.ID, err))
		return
	}
	result.CreatedTransfers++
	slog.Info("Canonical loan transfer rebuilt",
		"old_id", canonical.ID, "new_id", rebuilt.ID)
}

// RecalcResult summarizes a bulk balance recalculation.
type RecalcResult struct {
	// Accounts is the number of accounts the user owns.
	Accounts int
	// Repaired is the number whose cached balance was overwritten.
	Repaired int
	// Errors holds one message per account that failed.
	Errors []string
}

// RecalculateAccountBalances overwrites every cached balance of the user
// with the reconciler's computation. Bulk loan processing restructures
// enough of the ledger that incremental deltas are not trusted afterwards.
func (s *LoanService) RecalculateAccountBalances(ctx context.Context, userID string) (*RecalcResult, error) {
	accounts, err := s.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &RecalcResult{Accounts: len(accounts)}
	for _, account := range accounts {
		err := s.store.RunTransaction(ctx, func(tx storage.Store) error {
			_, err := reconciler.Repair(ctx, tx, account.ID)
			return err
		})
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("account %s: %v", account.ID, err))
			continue
		}
		result.Repaired++
	}

	slog.Info("Account balances recalculated",
		"user_id", userID, "accounts", result.Accounts, "repaired", result.Repaired)
	return result, nil
}
