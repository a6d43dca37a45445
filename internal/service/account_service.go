package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/storage"
)

// AccountService manages account lifecycle. Destruction is guarded: an
// account disappears only when nothing in the ledger references it.
type AccountService struct {
	store storage.Store
}

// NewAccountService creates an AccountService with the given storage backend.
func NewAccountService(store storage.Store) *AccountService {
	return &AccountService{store: store}
}

// CreateAccountParams holds parameters for creating an account.
type CreateAccountParams struct {
	UserID           string
	Name             string
	Type             models.AccountType
	Currency         string
	CountsInNetWorth bool
	Hidden           bool
}

// CreateAccount creates a new account with a zero balance.
func (s *AccountService) CreateAccount(ctx context.Context, p CreateAccountParams) (*models.Account, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: account name required", models.ErrInvalidArgument)
	}
	if p.Type == "" {
		p.Type = models.AccountTypeCash
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", models.ErrInvalidArgument, p.Type)
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}

	account := &models.Account{
		UserID:           p.UserID,
		Name:             p.Name,
		Type:             p.Type,
		Currency:         p.Currency,
		Balance:          decimal.Zero,
		CountsInNetWorth: p.CountsInNetWorth,
		Hidden:           p.Hidden,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		slog.Error("CreateAccount failed", "user_id", p.UserID, "error", err)
		return nil, err
	}

	slog.Info("Account created", "account_id", account.ID, "name", account.Name)
	return account, nil
}

// ListAccounts returns every account owned by the user.
func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	return s.store.ListAccountsByUser(ctx, userID)
}

// DeleteAccount removes an account that no flow or transfer references.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	return s.store.RunTransaction(ctx, func(tx storage.Store) error {
		account, err := tx.GetUserAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		refs, err := tx.CountAccountRefs(ctx, account.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: account %s is referenced by %d ledger records",
				models.ErrInvalidArgument, account.ID, refs)
		}
		if err := tx.DeleteAccount(ctx, account.ID); err != nil {
			return err
		}
		slog.Info("Account deleted", "account_id", account.ID)
		return nil
	})
}
