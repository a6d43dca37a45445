package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/bookkeep/internal/metrics"
	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/reconciler"
	"github.com/mmynk/bookkeep/internal/storage"
)

// dateLayout is the day-granularity date format used across the ledger.
const dateLayout = "2006-01-02"

// TransferService is the unified transfer engine: every money movement
// between two accounts goes through it as one atomic unit of {transfer row,
// two flow rows, two balance deltas}. The pair is an aggregate owned by the
// transfer; no caller ever touches one half on its own.
type TransferService struct {
	store storage.Store
}

// NewTransferService creates a new TransferService with the given storage backend.
func NewTransferService(store storage.Store) *TransferService {
	return &TransferService{store: store}
}

// CreateTransferParams holds parameters for creating a transfer pair.
// A non-empty LoanType marks the movement as loan-related and requires a
// counterparty.
type CreateTransferParams struct {
	UserID        string
	BookID        string
	Date          string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	LoanType      models.LoanType
	Counterparty  string
	Name          string
	Description   string

	// id and createdAt preserve identity across the delete-then-recreate
	// update path and the loan migration. Zero values mean "assign fresh".
	id        string
	createdAt int64
}

// UpdateTransferParams holds the optional fields of an update. Nil means
// "keep the existing value".
type UpdateTransferParams struct {
	Date          *string
	FromAccountID *string
	ToAccountID   *string
	Amount        *decimal.Decimal
	LoanType      *models.LoanType
	Counterparty  *string
	Name          *string
	Description   *string
}

// validateTransferParams rejects invalid input before anything is written.
func validateTransferParams(p CreateTransferParams) error {
	if p.FromAccountID == p.ToAccountID {
		return fmt.Errorf("%w: from and to account must differ", models.ErrInvalidArgument)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", models.ErrInvalidArgument, p.Amount)
	}
	if _, err := time.Parse(dateLayout, p.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", models.ErrInvalidArgument, p.Date)
	}
	if p.LoanType != "" {
		if !p.LoanType.Valid() {
			return fmt.Errorf("%w: unknown loan type %q", models.ErrInvalidArgument, p.LoanType)
		}
		if p.Counterparty == "" {
			return fmt.Errorf("%w: loan transfer requires a counterparty", models.ErrInvalidArgument)
		}
	}
	return nil
}

// CreateTransfer creates the paired construct: one transfer row and its two
// linked flows, plus the matching balance deltas, all in one transaction.
func (s *TransferService) CreateTransfer(ctx context.Context, p CreateTransferParams) (*models.Transfer, error) {
	if err := validateTransferParams(p); err != nil {
		return nil, err
	}

	var transfer *models.Transfer
	err := s.store.RunTransaction(ctx, func(tx storage.Store) error {
		var err error
		transfer, err = createTransferTx(ctx, tx, p)
		return err
	})
	if err != nil {
		slog.Error("CreateTransfer failed", "user_id", p.UserID, "error", err)
		return nil, err
	}

	metrics.TransfersCreated.Inc()
	slog.Info("Transfer created",
		"transfer_id", transfer.ID,
		"from", transfer.FromAccountID,
		"to", transfer.ToAccountID,
		"amount", transfer.Amount,
		"loan_type", transfer.LoanType,
	)
	return transfer, nil
}

// createTransferTx is the transactional body of CreateTransfer, shared with
// the update path and the loan migration. Both flows are marked eliminate:
// moving money between your own accounts is not income or expense, but the
// balances still move.
func createTransferTx(ctx context.Context, tx storage.Store, p CreateTransferParams) (*models.Transfer, error) {
	from, err := tx.GetUserAccount(ctx, p.UserID, p.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := tx.GetUserAccount(ctx, p.UserID, p.ToAccountID)
	if err != nil {
		return nil, err
	}

	transfer := &models.Transfer{
		ID:            p.id,
		UserID:        p.UserID,
		Date:          p.Date,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        p.Amount,
		LoanType:      p.LoanType,
		Counterparty:  p.Counterparty,
		Name:          p.Name,
		Description:   p.Description,
		CreatedAt:     p.createdAt,
	}
	if err := tx.CreateTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	debit := &models.Flow{
		UserID:        p.UserID,
		BookID:        p.BookID,
		Date:          p.Date,
		Kind:          models.FlowExpense,
		Category:      transfer.FlowCategory(),
		Counterparty:  p.Counterparty,
		Amount:        p.Amount,
		AccountID:     from.ID,
		TransferID:    transfer.ID,
		Eliminate:     true,
	}
	credit := &models.Flow{
		UserID:        p.UserID,
		BookID:        p.BookID,
		Date:          p.Date,
		Kind:          models.FlowIncome,
		Category:      transfer.FlowCategory(),
		Counterparty:  p.Counterparty,
		Amount:        p.Amount,
		AccountID:     to.ID,
		TransferID:    transfer.ID,
		Eliminate:     true,
	}
	if err := tx.CreateFlow(ctx, debit); err != nil {
		return nil, err
	}
	if err := tx.CreateFlow(ctx, credit); err != nil {
		return nil, err
	}

	// Fast path: apply the exact deltas instead of recomputing.
	if err := tx.AddToAccountBalance(ctx, from.ID, p.Amount.Neg()); err != nil {
		return nil, err
	}
	if err := tx.AddToAccountBalance(ctx, to.ID, p.Amount); err != nil {
		return nil, err
	}
	return transfer, nil
}

// UpdateTransfer applies a partial update as a full delete-then-recreate of
// the pair inside one transaction: the reversal math of deletion followed by
// the application math of creation can never leave an inconsistent
// intermediate balance, which field-diffing could.
func (s *TransferService) UpdateTransfer(ctx context.Context, userID, transferID string, p UpdateTransferParams) (*models.Transfer, error) {
	var (
		updated   *models.Transfer
		ambiguous bool
	)
	err := s.store.RunTransaction(ctx, func(tx storage.Store) error {
		existing, err := tx.GetUserTransfer(ctx, userID, transferID)
		if err != nil {
			return err
		}

		// The book tag lives on the flows; carry it across the rebuild.
		bookID := ""
		if flows, err := tx.ListFlowsByTransfer(ctx, existing.ID); err == nil && len(flows) > 0 {
			bookID = flows[0].BookID
		}

		ambiguous, err = deleteTransferTx(ctx, tx, existing)
		if err != nil {
			return err
		}
		if ambiguous {
			// The old pair was broken; its accounts are repaired and the
			// junk is gone, but there is no trustworthy state to rebuild
			// from. Commit the cleanup and report failure.
			return nil
		}

		next := CreateTransferParams{
			UserID:        userID,
			BookID:        bookID,
			Date:          existing.Date,
			FromAccountID: existing.FromAccountID,
			ToAccountID:   existing.ToAccountID,
			Amount:        existing.Amount,
			LoanType:      existing.LoanType,
			Counterparty:  existing.Counterparty,
			Name:          existing.Name,
			Description:   existing.Description,
			id:            existing.ID,
			createdAt:     existing.CreatedAt,
		}
		if p.Date != nil {
			next.Date = *p.Date
		}
		if p.FromAccountID != nil {
			next.FromAccountID = *p.FromAccountID
		}
		if p.ToAccountID != nil {
			next.ToAccountID = *p.ToAccountID
		}
		if p.Amount != nil {
			next.Amount = *p.Amount
		}
		if p.LoanType != nil {
			next.LoanType = *p.LoanType
		}
		if p.Counterparty != nil {
			next.Counterparty = *p.Counterparty
		}
		if p.Name != nil {
			next.Name = *p.Name
		}
		if p.Description != nil {
			next.Description = *p.Description
		}

		if err := validateTransferParams(next); err != nil {
			return err
		}
		updated, err = createTransferTx(ctx, tx, next)
		return err
	})
	if err != nil {
		slog.Error("UpdateTransfer failed", "transfer_id", transferID, "error", err)
		return nil, err
	}
	if ambiguous {
		metrics.AmbiguousRepairs.Inc()
		slog.Warn("UpdateTransfer found an inconsistent pair; accounts repaired, update not applied",
			"transfer_id", transferID)
		return nil, fmt.Errorf("transfer %s: pair halves could not both be located, accounts repaired: %w",
			transferID, models.ErrAmbiguousState)
	}

	slog.Info("Transfer updated", "transfer_id", updated.ID)
	return updated, nil
}

// DeleteTransfer removes the pair as one unit: both flows, both balance
// reversals, and the transfer row. An inconsistent pair is force-cleaned and
// its accounts rebuilt from the ledger; the cleanup commits even though the
// operation reports ErrAmbiguousState.
func (s *TransferService) DeleteTransfer(ctx context.Context, userID, transferID string) error {
	var ambiguous bool
	err := s.store.RunTransaction(ctx, func(tx storage.Store) error {
		transfer, err := tx.GetUserTransfer(ctx, userID, transferID)
		if err != nil {
			return err
		}
		ambiguous, err = deleteTransferTx(ctx, tx, transfer)
		return err
	})
	if err != nil {
		slog.Error("DeleteTransfer failed", "transfer_id", transferID, "error", err)
		return err
	}

	metrics.TransfersDeleted.Inc()
	if ambiguous {
		metrics.AmbiguousRepairs.Inc()
		slog.Warn("DeleteTransfer found an inconsistent pair; flows force-deleted and accounts repaired",
			"transfer_id", transferID)
		return fmt.Errorf("transfer %s: pair halves could not both be located, accounts repaired: %w",
			transferID, models.ErrAmbiguousState)
	}

	slog.Info("Transfer deleted", "transfer_id", transferID)
	return nil
}

// deleteTransferTx unwinds a transfer inside an open transaction. It returns
// ambiguous=true when the pair was not in its invariant shape; in that case
// every flow referencing the transfer has been force-deleted and every
// touched account repaired via the reconciler, because the incremental math
// stops being trustworthy the moment an anomaly is observed.
func deleteTransferTx(ctx context.Context, tx storage.Store, transfer *models.Transfer) (bool, error) {
	flows, err := tx.ListFlowsByTransfer(ctx, transfer.ID)
	if err != nil {
		return false, err
	}

	if healthyPair(transfer, flows) {
		if _, err := tx.DeleteFlowsByTransfer(ctx, transfer.ID); err != nil {
			return false, err
		}
		if err := tx.AddToAccountBalance(ctx, transfer.FromAccountID, transfer.Amount); err != nil {
			return false, err
		}
		if err := tx.AddToAccountBalance(ctx, transfer.ToAccountID, transfer.Amount.Neg()); err != nil {
			return false, err
		}
		return false, tx.DeleteTransfer(ctx, transfer.ID)
	}

	// Anomalous pair. Collect every account the junk touches before it
	// goes away, then rebuild those balances from the remaining ledger.
	touched := map[string]bool{
		transfer.FromAccountID: true,
		transfer.ToAccountID:   true,
	}
	for _, flow := range flows {
		if flow.AccountID != "" {
			touched[flow.AccountID] = true
		}
	}
	if _, err := tx.DeleteFlowsByTransfer(ctx, transfer.ID); err != nil {
		return false, err
	}
	if err := tx.DeleteTransfer(ctx, transfer.ID); err != nil {
		return false, err
	}
	for accountID := range touched {
		if _, err := reconciler.Repair(ctx, tx, accountID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// Legacy junk can reference accounts that no longer
				// exist; nothing to repair there.
				continue
			}
			return true, err
		}
	}
	return true, nil
}

// healthyPair reports whether flows are the exact invariant shape of the
// transfer: two rows, one expense on the source, one income on the
// destination, both with the transfer's amount.
func healthyPair(transfer *models.Transfer, flows []*models.Flow) bool {
	if len(flows) != 2 {
		return false
	}
	var debit, credit *models.Flow
	for _, flow := range flows {
		switch flow.Kind {
		case models.FlowExpense:
			debit = flow
		case models.FlowIncome:
			credit = flow
		}
	}
	if debit == nil || credit == nil {
		return false
	}
	return debit.AccountID == transfer.FromAccountID &&
		credit.AccountID == transfer.ToAccountID &&
		debit.Amount.Equal(transfer.Amount) &&
		credit.Amount.Equal(transfer.Amount)
}
