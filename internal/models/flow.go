package models

import "github.com/shopspring/decimal"

// FlowKind is the direction of a ledger entry.
type FlowKind string

const (
	FlowIncome  FlowKind = "income"
	FlowExpense FlowKind = "expense"
)

// Valid reports whether k is a known flow kind.
func (k FlowKind) Valid() bool {
	return k == FlowIncome || k == FlowExpense
}

// Opposite returns the other flow kind.
func (k FlowKind) Opposite() FlowKind {
	if k == FlowIncome {
		return FlowExpense
	}
	return FlowIncome
}

// CategoryTransfer tags the two halves of a plain (non-loan) transfer.
const CategoryTransfer = "transfer"

// Flow is a single ledger entry: one signed money event against one account.
type Flow struct {
	// ID is the unique identifier for the flow (UUID format).
	ID string

	// UserID is the owning user.
	UserID string

	// BookID is the book this entry was recorded in.
	BookID string

	// Date is the entry date in "2006-01-02" form. The ledger works at
	// day granularity.
	Date string

	// Kind determines the sign of the entry: income adds to the account,
	// expense subtracts from it.
	Kind FlowKind

	// Category is a free-form category tag. For loan flows it holds the
	// loan type (borrow, lend, collect, repay); for transfer halves it is
	// the loan type or CategoryTransfer.
	Category string

	// PaymentMethod is a free-form payment-method tag.
	PaymentMethod string

	// Counterparty names the other party for loan-related entries.
	// Legacy unpaired loan flows carry it here; for transfer halves the
	// Transfer record is authoritative.
	Counterparty string

	// Amount is the non-negative magnitude. The sign is derived from Kind.
	Amount decimal.Decimal

	// AccountID is the account this entry moves money in. Empty means the
	// entry does not touch account money (e.g., unclassified legacy import).
	AccountID string

	// TransferID links the flow to the Transfer that owns it. A flow with
	// a non-empty TransferID is one half of exactly one transfer pair and
	// must never be mutated or deleted on its own.
	TransferID string

	// Eliminate excludes the flow from income/expense aggregates while
	// still affecting the account balance. Transfer halves are always
	// eliminated: moving money between your own accounts is not income
	// or expense.
	Eliminate bool

	// CreatedAt is the Unix timestamp when the flow was recorded.
	CreatedAt int64
}

// SignedAmount returns the flow's contribution to its account balance:
// +Amount for income, -Amount for expense.
func (f *Flow) SignedAmount() decimal.Decimal {
	if f.Kind == FlowIncome {
		return f.Amount
	}
	return f.Amount.Neg()
}

// IsLoan reports whether the flow is tagged with a loan category.
func (f *Flow) IsLoan() bool {
	return LoanType(f.Category).Valid()
}

// IsTransferHalf reports whether the flow belongs to a transfer pair.
func (f *Flow) IsTransferHalf() bool {
	return f.TransferID != ""
}
