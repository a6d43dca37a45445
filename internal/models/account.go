package models

import "github.com/shopspring/decimal"

// AccountType classifies a monetary bucket.
type AccountType string

const (
	AccountTypeCash    AccountType = "cash"
	AccountTypeBank    AccountType = "bank"
	AccountTypeCredit  AccountType = "credit"
	AccountTypeVirtual AccountType = "virtual"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeCredit, AccountTypeVirtual:
		return true
	}
	return false
}

// Account represents a monetary bucket owned by one user.
//
// Balance is a cached, denormalized value. The invariant is that it always
// equals the sum of SignedAmount over every Flow referencing this account;
// the reconciler package is the single authority on what that sum should be.
// Every write path either applies the exact matching delta or hands the
// account to the reconciler for repair.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// UserID is the owning user.
	UserID string

	// Name is the display name of the account (e.g., "Wallet", "Checking").
	Name string

	// Type classifies the account (cash, bank, credit, virtual).
	Type AccountType

	// Currency is the ISO 4217 currency code (e.g., "USD").
	// The ledger never converts between currencies.
	Currency string

	// Balance is the cached balance. See the struct comment: this is a
	// cache of the reconciler's computation, never an independent fact.
	Balance decimal.Decimal

	// CountsInNetWorth marks whether the account is included in
	// net-worth totals.
	CountsInNetWorth bool

	// Hidden hides the account from normal listings without deleting it.
	Hidden bool

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}
