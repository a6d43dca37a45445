package reconciler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/bookkeep/internal/models"
	"github.com/mmynk/bookkeep/internal/storage"
	"github.com/mmynk/bookkeep/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedAccount(t *testing.T, store storage.Store) *models.Account {
	t.Helper()
	account := &models.Account{
		UserID:   "u1",
		Name:     "Wallet",
		Type:     models.AccountTypeCash,
		Currency: "USD",
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func seedFlow(t *testing.T, store storage.Store, accountID string, kind models.FlowKind, amount string, eliminate bool) {
	t.Helper()
	flow := &models.Flow{
		UserID:    "u1",
		Date:      "2026-05-01",
		Kind:      kind,
		Amount:    decimal.RequireFromString(amount),
		AccountID: accountID,
		Eliminate: eliminate,
	}
	require.NoError(t, store.CreateFlow(context.Background(), flow))
}

func TestRecompute(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := seedAccount(t, store)

	t.Run("no flows computes to zero", func(t *testing.T) {
		balance, err := Recompute(ctx, store, account.ID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("sums signed amounts", func(t *testing.T) {
		seedFlow(t, store, account.ID, models.FlowIncome, "100", false)
		seedFlow(t, store, account.ID, models.FlowExpense, "37.50", false)

		balance, err := Recompute(ctx, store, account.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("62.5")))
	})

	t.Run("eliminated flows still count toward the balance", func(t *testing.T) {
		seedFlow(t, store, account.ID, models.FlowExpense, "12.5", true)

		balance, err := Recompute(ctx, store, account.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("50")))
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := Recompute(ctx, store, account.ID)
		require.NoError(t, err)
		second, err := Recompute(ctx, store, account.ID)
		require.NoError(t, err)
		assert.True(t, first.Equal(second))
	})

	t.Run("missing account is not zero", func(t *testing.T) {
		_, err := Recompute(ctx, store, "no-such-account")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := seedAccount(t, store)
	seedFlow(t, store, account.ID, models.FlowIncome, "80", false)

	t.Run("reports drift without mutating", func(t *testing.T) {
		require.NoError(t, store.SetAccountBalance(ctx, account.ID, decimal.RequireFromString("77")))

		report, err := Validate(ctx, store, account.ID)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.True(t, report.Stored.Equal(decimal.RequireFromString("77")))
		assert.True(t, report.Computed.Equal(decimal.RequireFromString("80")))

		// Still drifted: validation is read-only.
		after, err := store.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, after.Balance.Equal(decimal.RequireFromString("77")))
	})

	t.Run("reports consistent balance as valid", func(t *testing.T) {
		require.NoError(t, store.SetAccountBalance(ctx, account.ID, decimal.RequireFromString("80")))

		report, err := Validate(ctx, store, account.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
	})
}

func TestRepair(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	account := seedAccount(t, store)
	seedFlow(t, store, account.ID, models.FlowIncome, "45", false)

	require.NoError(t, store.SetAccountBalance(ctx, account.ID, decimal.RequireFromString("-3")))

	repaired, err := Repair(ctx, store, account.ID)
	require.NoError(t, err)
	assert.True(t, repaired.Equal(decimal.RequireFromString("45")))

	after, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(decimal.RequireFromString("45")))
}
