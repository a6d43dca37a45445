package models

import "github.com/shopspring/decimal"

// LoanType tags a transfer that represents a loan-related movement.
type LoanType string

const (
	LoanBorrow  LoanType = "borrow"
	LoanLend    LoanType = "lend"
	LoanCollect LoanType = "collect"
	LoanRepay   LoanType = "repay"
)

// Valid reports whether t is one of the four loan types.
func (t LoanType) Valid() bool {
	switch t {
	case LoanBorrow, LoanLend, LoanCollect, LoanRepay:
		return true
	}
	return false
}

// Transfer is the paired construct representing money moving between two
// accounts. A transfer owns exactly two Flow rows: an expense-kind debit on
// FromAccountID and an income-kind credit on ToAccountID, both carrying the
// transfer's ID and the same amount. The pair is created, updated, and
// deleted only as a unit; a transfer with zero linked flows is an orphan
// that maintenance must remove.
type Transfer struct {
	// ID is the unique identifier for the transfer (UUID format).
	ID string

	// UserID is the owning user.
	UserID string

	// Date is the movement date in "2006-01-02" form.
	Date string

	// FromAccountID is the account money leaves. Must differ from
	// ToAccountID.
	FromAccountID string

	// ToAccountID is the account money enters.
	ToAccountID string

	// Amount is the positive amount moved.
	Amount decimal.Decimal

	// LoanType is set when the transfer represents a loan movement
	// (borrow, lend, collect, repay). Empty for plain transfers.
	LoanType LoanType

	// Counterparty names the other party of a loan movement. Required
	// whenever LoanType is set.
	Counterparty string

	// Name is an optional short display name.
	Name string

	// Description is an optional free-form note.
	Description string

	// CreatedAt is the Unix timestamp when the transfer was recorded.
	// Duplicate consolidation uses it as the tie-break: the
	// earliest-created record wins as canonical.
	CreatedAt int64
}

// IsLoan reports whether the transfer is a loan movement.
func (t *Transfer) IsLoan() bool {
	return t.LoanType != ""
}

// FlowCategory returns the category tag written on both halves of the pair.
func (t *Transfer) FlowCategory() string {
	if t.IsLoan() {
		return string(t.LoanType)
	}
	return CategoryTransfer
}
