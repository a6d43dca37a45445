package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/bookkeep/internal/metrics"
	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/storage"
)

// LoanService consolidates and migrates loan records. Historical data may
// hold loan movements as two unpaired flows (predating the unified transfer
// construct) and may describe the same economic event more than once; this
// service converts the former into proper pairs and collapses the latter,
// without ever double-counting a balance.
//
// Bulk operations deliberately run one sub-transaction per logical pair or
// group: a failure in one group must not roll back unrelated groups, and the
// caller gets a per-item error list instead of a single abort.
type LoanService struct {
	store     storage.Store
	transfers *TransferService
}

// NewLoanService creates a LoanService sharing the engine's storage backend.
func NewLoanService(store storage.Store, transfers *TransferService) *LoanService {
	return &LoanService{store: store, transfers: transfers}
}

// ConsistencyReport describes pending loan repair work for one user.
type ConsistencyReport struct {
	// UnlinkedLoanFlows counts loan-category flows with no transfer link.
	UnlinkedLoanFlows int
	// LinkedLoanFlows counts loan-category flows that are proper halves.
	LinkedLoanFlows int
	// DanglingFlows counts flows whose transfer link points nowhere.
	DanglingFlows int
	// OrphanTransfers counts transfers with zero linked flows.
	OrphanTransfers int
	// UnlinkedFlowIDs and DanglingFlowIDs identify the offending rows.
	UnlinkedFlowIDs []string
	DanglingFlowIDs []string
	// NeedsProcessing reports whether any repair work is pending.
	NeedsProcessing bool
}

// ValidateConsistency scans the user's loan data without mutating anything.
func (s *LoanService) ValidateConsistency(ctx context.Context, userID string) (*ConsistencyReport, error) {
	unlinked, err := s.store.ListUnlinkedLoanFlows(ctx, userID)
	if err != nil {
		return nil, err
	}
	linked, err := s.store.ListLinkedLoanFlows(ctx, userID)
	if err != nil {
		return nil, err
	}
	dangling, err := s.store.ListDanglingTransferFlows(ctx, userID)
	if err != nil {
		return nil, err
	}
	orphans, err := s.store.ListOrphanTransfersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		UnlinkedLoanFlows: len(unlinked),
		LinkedLoanFlows:   len(linked),
		DanglingFlows:     len(dangling),
		OrphanTransfers:   len(orphans),
	}
	for _, flow := range unlinked {
		report.UnlinkedFlowIDs = append(report.UnlinkedFlowIDs, flow.ID)
	}
	for _, flow := range dangling {
		report.DanglingFlowIDs = append(report.DanglingFlowIDs, flow.ID)
	}
	report.NeedsProcessing = report.UnlinkedLoanFlows > 0 || report.DanglingFlows > 0 || report.OrphanTransfers > 0
	return report, nil
}

// ProcessResult summarizes a bulk loan migration run.
type ProcessResult struct {
	// Total is the number of unlinked loan flows considered.
	Total int
	// Success is the number of flows converted into transfer halves.
	Success int
	// Failed is the number of flows that could not be processed.
	Failed int
	// Errors holds one human-readable message per failure.
	Errors []string
}

// ProcessAllLoanFlows converts legacy unpaired loan flows into unified
// transfers. Each matched pair converts in its own transaction with zero net
// balance effect: the balances already reflected the unpaired flows, so the
// conversion reverses the legacy contributions and reapplies them through
// the engine's create path. Unmatched singletons are reported, never
// silently dropped. Orphaned transfers found along the way are swept too.
func (s *LoanService) ProcessAllLoanFlows(ctx context.Context, userID string) (*ProcessResult, error) {
	flows, err := s.store.ListUnlinkedLoanFlows(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{Total: len(flows)}
	pairs, singles := matchLoanPairs(flows)

	for _, pair := range pairs {
		if err := s.convertPair(ctx, pair[0], pair[1]); err != nil {
			result.Failed += 2
			result.Errors = append(result.Errors,
				fmt.Sprintf("flows %s + %s: %v", pair[0].ID, pair[1].ID, err))
			continue
		}
		result.Success += 2
		metrics.LoanPairsLinked.Inc()
	}

	for _, flow := range singles {
		result.Failed++
		result.Errors = append(result.Errors,
			fmt.Sprintf("flow %s (%s %s on %s): no matching counterpart", flow.ID, flow.Kind, flow.Amount, flow.Date))
	}

	s.sweepOrphanTransfers(ctx, userID, result)

	slog.Info("Loan flow processing finished",
		"user_id", userID,
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed,
	)
	return result, nil
}

// sweepOrphanTransfers deletes transfers that own zero flows. The engine's
// delete path treats them as anomalous and repairs the named accounts from
// the ledger.
func (s *LoanService) sweepOrphanTransfers(ctx context.Context, userID string, result *ProcessResult) {
	orphans, err := s.store.ListOrphanTransfersByUser(ctx, userID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("orphan scan: %v", err))
		return
	}
	for _, orphan := range orphans {
		err := s.transfers.DeleteTransfer(ctx, userID, orphan.ID)
		if err != nil && !errors.Is(err, models.ErrAmbiguousState) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("orphan transfer %s: %v", orphan.ID, err))
			continue
		}
		slog.Info("Orphan transfer removed", "transfer_id", orphan.ID)
	}
}

// convertPair rebuilds one legacy flow pair as a unified transfer inside a
// single transaction. Reversal of the legacy deltas plus the engine's
// forward deltas nets to zero, so converted balances do not move.
func (s *LoanService) convertPair(ctx context.Context, debit, credit *models.Flow) error {
	counterparty := debit.Counterparty
	if counterparty == "" {
		counterparty = credit.Counterparty
	}
	params := CreateTransferParams{
		UserID:        debit.UserID,
		BookID:        debit.BookID,
		Date:          debit.Date,
		FromAccountID: debit.AccountID,
		ToAccountID:   credit.AccountID,
		Amount:        debit.Amount,
		LoanType:      models.LoanType(debit.Category),
		Counterparty:  counterparty,
	}
	if err := validateTransferParams(params); err != nil {
		return err
	}

	return s.store.RunTransaction(ctx, func(tx storage.Store) error {
		// Undo the legacy contributions first; the create path below
		// reapplies the same money through the paired construct.
		if err := tx.AddToAccountBalance(ctx, debit.AccountID, debit.Amount); err != nil {
			return err
		}
		if err := tx.AddToAccountBalance(ctx, credit.AccountID, credit.Amount.Neg()); err != nil {
			return err
		}
		if err := tx.DeleteFlow(ctx, debit.ID); err != nil {
			return err
		}
		if err := tx.DeleteFlow(ctx, credit.ID); err != nil {
			return err
		}
		_, err := createTransferTx(ctx, tx, params)
		return err
	})
}

// matchLoanPairs pairs each expense flow with the first income flow sharing
// its date, amount, and loan category, on a different account, with a
// compatible counterparty. Input ordering (date, creation time, id) makes
// the greedy match deterministic. Leftovers come back as singles.
func matchLoanPairs(flows []*models.Flow) (pairs [][2]*models.Flow, singles []*models.Flow) {
	used := make([]bool, len(flows))
	for i, debit := range flows {
		if used[i] || debit.Kind != models.FlowExpense {
			continue
		}
		for j, credit := range flows {
			if used[j] || j == i || credit.Kind != models.FlowIncome {
				continue
			}
			if !loanCounterpartMatch(debit, credit) {
				continue
			}
			used[i], used[j] = true, true
			pairs = append(pairs, [2]*models.Flow{debit, credit})
			break
		}
	}
	for i, flow := range flows {
		if !used[i] {
			singles = append(singles, flow)
		}
	}
	return pairs, singles
}

// loanCounterpartMatch reports whether credit is the natural counterpart of
// debit: same date, amount, and loan category, both account-bound to
// different accounts, and counterparties that agree when both are recorded.
func loanCounterpartMatch(debit, credit *models.Flow) bool {
	if debit.AccountID == "" || credit.AccountID == "" || debit.AccountID == credit.AccountID {
		return false
	}
	if debit.Date != credit.Date || debit.Category != credit.Category {
		return false
	}
	if !debit.Amount.Equal(credit.Amount) {
		return false
	}
	if debit.Counterparty != "" && credit.Counterparty != "" && debit.Counterparty != credit.Counterparty {
		return false
	}
	return true
}
