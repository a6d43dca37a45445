package service

import (
	"context"

	"github.com/mmynk/bookkeep/internal/reconciler"
	"github.com/mmynk/bookkeep/internal/storage"
)

// ConsistencyService is the read-only diagnostic surface: it reports drift
// between cached balances and the ledger-derived values without mutating
// anything. Repair is always a separate, explicit operation.
type ConsistencyService struct {
	store storage.Store
}

// NewConsistencyService creates a ConsistencyService with the given storage backend.
func NewConsistencyService(store storage.Store) *ConsistencyService {
	return &ConsistencyService{store: store}
}

// ValidateAccountBalance compares one account's cached balance against the
// reconciler's computation.
func (s *ConsistencyService) ValidateAccountBalance(ctx context.Context, accountID string) (*reconciler.Report, error) {
	return reconciler.Validate(ctx, s.store, accountID)
}

// DriftReport aggregates balance validation over a user's accounts.
type DriftReport struct {
	// Checked is the number of accounts examined.
	Checked int
	// Drifted holds a report for each account whose cached balance does
	// not match the computed value.
	Drifted []*reconciler.Report
}

// ValidateUserAccounts runs the balance check over every account the user
// owns and reports which ones drifted. Read-only: fixing drift is the
// recalc operation's job.
func (s *ConsistencyService) ValidateUserAccounts(ctx context.Context, userID string) (*DriftReport, error) {
	accounts, err := s.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &DriftReport{}
	for _, account := range accounts {
		check, err := reconciler.Validate(ctx, s.store, account.ID)
		if err != nil {
			return nil, err
		}
		report.Checked++
		if !check.Valid {
			report.Drifted = append(report.Drifted, check)
		}
	}
	return report, nil
}
