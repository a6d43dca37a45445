package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/storage"
	"github.com/mmynk/bookkeep/internal/storage/sqlite"
)

func newTestLoanService(t *testing.T) (*LoanService, *sqlite.SQLiteStore) {
	t.Helper()
	store := newTestStore(t)
	engine := NewTransferService(store)
	return NewLoanService(store, engine), store
}

// seedLegacyLoanPair writes the pre-migration shape: two unpaired loan flows
// whose contributions are already reflected in the cached balances.
func seedLegacyLoanPair(t *testing.T, store storage.Store, from, to *models.Account, amount, date, loanType, counterparty string) (*models.Flow, *models.Flow) {
	t.Helper()
	ctx := context.Background()

	debit := &models.Flow{
		UserID:       testUser,
		Date:         date,
		Kind:         models.FlowExpense,
		Category:     loanType,
		Counterparty: counterparty,
		Amount:       dec(amount),
		AccountID:    from.ID,
	}
	credit := &models.Flow{
		UserID:       testUser,
		Date:         date,
		Kind:         models.FlowIncome,
		Category:     loanType,
		Counterparty: counterparty,
		Amount:       dec(amount),
		AccountID:    to.ID,
	}
	require.NoError(t, store.CreateFlow(ctx, debit))
	require.NoError(t, store.CreateFlow(ctx, credit))
	require.NoError(t, store.AddToAccountBalance(ctx, from.ID, debit.SignedAmount()))
	require.NoError(t, store.AddToAccountBalance(ctx, to.ID, credit.SignedAmount()))
	return debit, credit
}

func TestValidateConsistency(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	report, err := loans.ValidateConsistency(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, report.NeedsProcessing)

	seedLegacyLoanPair(t, store, from, to, "50", "2026-01-10", "lend", "alice")

	report, err = loans.ValidateConsistency(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, report.UnlinkedLoanFlows)
	assert.Equal(t, 0, report.LinkedLoanFlows)
	assert.Len(t, report.UnlinkedFlowIDs, 2)
	assert.True(t, report.NeedsProcessing)
}

func TestProcessAllLoanFlows(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	seedLegacyLoanPair(t, store, from, to, "50", "2026-01-10", "lend", "alice")

	result, err := loans.ProcessAllLoanFlows(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	// Balances are untouched by the conversion.
	assert.True(t, accountBalance(t, store, from.ID).Equal(dec("-50")))
	assert.True(t, accountBalance(t, store, to.ID).Equal(dec("50")))

	// The legacy flows became one transfer with two linked halves.
	transfers, err := store.ListLoanTransfersByUser(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	transfer := transfers[0]
	assert.Equal(t, models.LoanLend, transfer.LoanType)
	assert.Equal(t, "alice", transfer.Counterparty)
	assert.Equal(t, from.ID, transfer.FromAccountID)
	assert.Equal(t, to.ID, transfer.ToAccountID)
	assert.True(t, transfer.Amount.Equal(dec("50")))

	halves, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	require.Len(t, halves, 2)
	for _, half := range halves {
		assert.True(t, half.Eliminate)
	}

	// Nothing unlinked remains; a second run is a no-op.
	report, err := loans.ValidateConsistency(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, report.NeedsProcessing)

	again, err := loans.ProcessAllLoanFlows(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Total)
}

func TestProcessAllLoanFlowsUnmatchedSingleton(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)

	account := newTestAccount(t, store, "A")

	lonely := &models.Flow{
		UserID:       testUser,
		Date:         "2026-01-10",
		Kind:         models.FlowExpense,
		Category:     "lend",
		Counterparty: "bob",
		Amount:       dec("20"),
		AccountID:    account.ID,
	}
	require.NoError(t, store.CreateFlow(ctx, lonely))
	require.NoError(t, store.AddToAccountBalance(ctx, account.ID, lonely.SignedAmount()))

	result, err := loans.ProcessAllLoanFlows(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], lonely.ID)

	// The singleton survives untouched; it is reported, never dropped.
	_, err = store.GetFlow(ctx, lonely.ID)
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, account.ID).Equal(dec("-20")))
}

func TestProcessAllLoanFlowsSweepsOrphans(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	orphan := &models.Transfer{
		UserID:        testUser,
		Date:          "2026-01-10",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("10"),
	}
	require.NoError(t, store.CreateTransfer(ctx, orphan))

	_, err := loans.ProcessAllLoanFlows(ctx, testUser)
	require.NoError(t, err)

	_, err = store.GetTransfer(ctx, orphan.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConsolidateDuplicateLoanRecords(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)
	engine := loans.transfers

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	// Three records of the same 70 lend to carol: one real event entered
	// three times.
	params := CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-02-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("70"),
		LoanType:      models.LoanLend,
		Counterparty:  "carol",
	}
	duplicateIDs := make(map[string]bool)
	for i := 0; i < 3; i++ {
		transfer, err := engine.CreateTransfer(ctx, params)
		require.NoError(t, err)
		duplicateIDs[transfer.ID] = true
	}

	// A distinct event that must survive consolidation.
	distinct, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-02-02",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("70"),
		LoanType:      models.LoanLend,
		Counterparty:  "carol",
	})
	require.NoError(t, err)

	result, err := loans.ConsolidateDuplicateLoanRecords(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalMerged)
	assert.Empty(t, result.Errors)

	// One canonical record of the triplicated event remains, plus the
	// distinct event.
	remaining, err := store.ListLoanTransfersByUser(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	var sawCanonical, sawDistinct bool
	for _, transfer := range remaining {
		if duplicateIDs[transfer.ID] {
			sawCanonical = true
		}
		if transfer.ID == distinct.ID {
			sawDistinct = true
		}
	}
	assert.True(t, sawCanonical, "one of the duplicated records survives as canonical")
	assert.True(t, sawDistinct, "the distinct event is untouched")

	// Post-state equals two single correctly-recorded events.
	assert.True(t, accountBalance(t, store, from.ID).Equal(dec("-140")))
	assert.True(t, accountBalance(t, store, to.ID).Equal(dec("140")))
}

func TestConsolidateRebuildsDamagedCanonical(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)
	engine := loans.transfers

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	params := CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-02-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("30"),
		LoanType:      models.LoanRepay,
		Counterparty:  "dan",
	}
	_, err := engine.CreateTransfer(ctx, params)
	require.NoError(t, err)
	_, err = engine.CreateTransfer(ctx, params)
	require.NoError(t, err)

	// Damage the pair of whichever record consolidation will keep as
	// canonical: the head of the store's (created_at, id) ordering.
	ordered, err := store.ListLoanTransfersByUser(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	canonical := ordered[0]
	halves, err := store.ListFlowsByTransfer(ctx, canonical.ID)
	require.NoError(t, err)
	require.Len(t, halves, 2)
	require.NoError(t, store.DeleteFlow(ctx, halves[0].ID))

	result, err := loans.ConsolidateDuplicateLoanRecords(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalMerged)
	assert.Equal(t, 1, result.CreatedTransfers)

	// Exactly one healthy record of the event remains and the balances
	// match a single correctly-recorded transfer.
	remaining, err := store.ListLoanTransfersByUser(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	halves, err = store.ListFlowsByTransfer(ctx, remaining[0].ID)
	require.NoError(t, err)
	assert.Len(t, halves, 2)
	assert.True(t, accountBalance(t, store, from.ID).Equal(dec("-30")))
	assert.True(t, accountBalance(t, store, to.ID).Equal(dec("30")))
}

func TestRecalculateAccountBalances(t *testing.T) {
	ctx := context.Background()
	loans, store := newTestLoanService(t)

	account := newTestAccount(t, store, "A")

	flow := &models.Flow{
		UserID:    testUser,
		Date:      "2026-01-10",
		Kind:      models.FlowIncome,
		Category:  "salary",
		Amount:    dec("200"),
		AccountID: account.ID,
	}
	require.NoError(t, store.CreateFlow(ctx, flow))
	// Cached balance deliberately wrong.
	require.NoError(t, store.SetAccountBalance(ctx, account.ID, dec("999")))

	result, err := loans.RecalculateAccountBalances(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accounts)
	assert.Equal(t, 1, result.Repaired)
	assert.Empty(t, result.Errors)

	assert.True(t, accountBalance(t, store, account.ID).Equal(dec("200")))
}
