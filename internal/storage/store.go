// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/bookkeep/internal/models"
)

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// All read methods return models.ErrNotFound (wrapped) when the requested row
// does not exist; infrastructure failures wrap models.ErrStorage.
type Store interface {
	// RunTransaction executes fn against a transaction-scoped Store.
	// Either every write made through tx commits, or none do. Calling
	// RunTransaction on a Store that is already transaction-scoped joins
	// the enclosing transaction instead of opening a nested one.
	RunTransaction(ctx context.Context, fn func(tx Store) error) error

	// Accounts.

	// CreateAccount persists a new account, assigning ID and CreatedAt
	// when unset.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by ID.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// GetUserAccount retrieves an account by ID, scoped to its owner.
	// An account owned by a different user is reported as not found.
	GetUserAccount(ctx context.Context, userID, accountID string) (*models.Account, error)

	// ListAccountsByUser returns every account owned by the user,
	// hidden ones included.
	ListAccountsByUser(ctx context.Context, userID string) ([]*models.Account, error)

	// SetAccountBalance overwrites the cached balance.
	SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error

	// AddToAccountBalance applies a signed delta to the cached balance
	// as a read-modify-write. Callers run it inside RunTransaction so
	// the increment is atomic with the rest of the mutation.
	AddToAccountBalance(ctx context.Context, accountID string, delta decimal.Decimal) error

	// CountAccountRefs returns how many flows and transfers reference
	// the account. Accounts may only be deleted when this is zero.
	CountAccountRefs(ctx context.Context, accountID string) (int64, error)

	// DeleteAccount removes an account row. The reference-count guard
	// lives in the service layer, not here.
	DeleteAccount(ctx context.Context, accountID string) error

	// Flows.

	// CreateFlow persists a new ledger entry, assigning ID and CreatedAt
	// when unset.
	CreateFlow(ctx context.Context, flow *models.Flow) error

	// GetFlow retrieves a flow by ID.
	GetFlow(ctx context.Context, flowID string) (*models.Flow, error)

	// GetUserFlow retrieves a flow by ID, scoped to its owner.
	GetUserFlow(ctx context.Context, userID, flowID string) (*models.Flow, error)

	// ListFlowsByAccount returns every flow referencing the account.
	ListFlowsByAccount(ctx context.Context, accountID string) ([]*models.Flow, error)

	// ListFlowsByTransfer returns the flows linked to a transfer.
	// A healthy pair yields exactly two rows.
	ListFlowsByTransfer(ctx context.Context, transferID string) ([]*models.Flow, error)

	// ListUnlinkedLoanFlows returns the user's loan-category flows that
	// have no transfer link: legacy records predating the paired
	// construct. Ordered by date then creation time so matching is
	// deterministic.
	ListUnlinkedLoanFlows(ctx context.Context, userID string) ([]*models.Flow, error)

	// ListLinkedLoanFlows returns the user's loan-category flows that
	// are halves of a transfer pair.
	ListLinkedLoanFlows(ctx context.Context, userID string) ([]*models.Flow, error)

	// ListDanglingTransferFlows returns flows whose TransferID points at
	// a transfer that no longer exists.
	ListDanglingTransferFlows(ctx context.Context, userID string) ([]*models.Flow, error)

	// SumFlowsByAccount aggregates the signed amounts of every flow
	// referencing the account. This is the reconciler's raw material.
	SumFlowsByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)

	// UpdateFlow overwrites an existing flow.
	UpdateFlow(ctx context.Context, flow *models.Flow) error

	// DeleteFlow removes a single flow row.
	DeleteFlow(ctx context.Context, flowID string) error

	// DeleteFlowsByTransfer removes every flow linked to the transfer
	// and reports how many rows went away.
	DeleteFlowsByTransfer(ctx context.Context, transferID string) (int64, error)

	// Transfers.

	// CreateTransfer persists a new transfer, assigning ID and CreatedAt
	// when unset.
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error

	// GetTransfer retrieves a transfer by ID.
	GetTransfer(ctx context.Context, transferID string) (*models.Transfer, error)

	// GetUserTransfer retrieves a transfer by ID, scoped to its owner.
	GetUserTransfer(ctx context.Context, userID, transferID string) (*models.Transfer, error)

	// ListLoanTransfersByUser returns the user's loan-tagged transfers
	// ordered by creation time, earliest first.
	ListLoanTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error)

	// ListOrphanTransfersByUser returns transfers with zero linked
	// flows. Orphans are invalid state and exist only to be deleted by
	// maintenance.
	ListOrphanTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error)

	// DeleteTransfer removes a transfer row. Pair unwinding is the
	// engine's job; this only touches the one row.
	DeleteTransfer(ctx context.Context, transferID string) error

	// Close releases any resources held by the store.
	Close() error
}
