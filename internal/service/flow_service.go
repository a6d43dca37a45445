package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/reconciler"
	"github.com/mmynk/bookkeep/internal/storage"
)

// Freestanding flow entry points. These live on the TransferService because
// the "delete one entry" path must be able to route a transfer half into the
// full pair deletion: a half-deletion is never a valid state.

// AddFlowParams holds parameters for recording a freestanding ledger entry.
type AddFlowParams struct {
	UserID        string
	BookID        string
	Date          string
	Kind          models.FlowKind
	Category      string
	PaymentMethod string
	Counterparty  string
	Amount        decimal.Decimal
	AccountID     string
	Eliminate     bool
}

// AddFlow records a user-entered income or expense entry. When the entry is
// bound to an account, the matching balance delta applies in the same
// transaction.
func (s *TransferService) AddFlow(ctx context.Context, p AddFlowParams) (*models.Flow, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown flow kind %q", models.ErrInvalidArgument, p.Kind)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", models.ErrInvalidArgument, p.Amount)
	}
	if _, err := time.Parse(dateLayout, p.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", models.ErrInvalidArgument, p.Date)
	}

	flow := &models.Flow{
		UserID:        p.UserID,
		BookID:        p.BookID,
		Date:          p.Date,
		Kind:          p.Kind,
		Category:      p.Category,
		PaymentMethod: p.PaymentMethod,
		Counterparty:  p.Counterparty,
		Amount:        p.Amount,
		AccountID:     p.AccountID,
		Eliminate:     p.Eliminate,
	}
	err := s.store.RunTransaction(ctx, func(tx storage.Store) error {
		if p.AccountID != "" {
			if _, err := tx.GetUserAccount(ctx, p.UserID, p.AccountID); err != nil {
				return err
			}
		}
		if err := tx.CreateFlow(ctx, flow); err != nil {
			return err
		}
		if flow.AccountID != "" {
			return tx.AddToAccountBalance(ctx, flow.AccountID, flow.SignedAmount())
		}
		return nil
	})
	if err != nil {
		slog.Error("AddFlow failed", "user_id", p.UserID, "error", err)
		return nil, err
	}

	slog.Info("Flow recorded", "flow_id", flow.ID, "kind", flow.Kind, "amount", flow.Amount)
	return flow, nil
}

// DeleteFlow removes a single ledger entry and reverses its balance
// contribution. A flow that is half of a transfer pair is redirected to
// DeleteTransfer on the owning transfer; a dangling half whose transfer is
// already gone is force-deleted and its account repaired from the ledger.
func (s *TransferService) DeleteFlow(ctx context.Context, userID, flowID string) error {
	flow, err := s.store.GetUserFlow(ctx, userID, flowID)
	if err != nil {
		return err
	}

	if flow.IsTransferHalf() {
		err := s.DeleteTransfer(ctx, userID, flow.TransferID)
		if err == nil || !errors.Is(err, models.ErrNotFound) {
			return err
		}
		// The transfer row is already gone: this half dangles. Clean it
		// up and rebuild the account from what remains.
		slog.Warn("Flow links to a missing transfer; force-deleting and repairing",
			"flow_id", flow.ID, "transfer_id", flow.TransferID)
		return s.store.RunTransaction(ctx, func(tx storage.Store) error {
			if err := tx.DeleteFlow(ctx, flow.ID); err != nil {
				return err
			}
			if flow.AccountID == "" {
				return nil
			}
			_, err := reconciler.Repair(ctx, tx, flow.AccountID)
			return err
		})
	}

	err = s.store.RunTransaction(ctx, func(tx storage.Store) error {
		if err := tx.DeleteFlow(ctx, flow.ID); err != nil {
			return err
		}
		if flow.AccountID != "" {
			return tx.AddToAccountBalance(ctx, flow.AccountID, flow.SignedAmount().Neg())
		}
		return nil
	})
	if err != nil {
		slog.Error("DeleteFlow failed", "flow_id", flowID, "error", err)
		return err
	}

	slog.Info("Flow deleted", "flow_id", flowID)
	return nil
}
