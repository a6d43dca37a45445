package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/bookkeep/internal/models"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	accounts := NewAccountService(store)

	t.Run("defaults", func(t *testing.T) {
		account, err := accounts.CreateAccount(ctx, CreateAccountParams{
			UserID: testUser,
			Name:   "Wallet",
		})
		require.NoError(t, err)
		assert.Equal(t, models.AccountTypeCash, account.Type)
		assert.Equal(t, "USD", account.Currency)
		assert.True(t, account.Balance.IsZero())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := accounts.CreateAccount(ctx, CreateAccountParams{UserID: testUser})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := accounts.CreateAccount(ctx, CreateAccountParams{
			UserID: testUser,
			Name:   "Weird",
			Type:   "mattress",
		})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	accounts := NewAccountService(store)
	engine := NewTransferService(store)

	t.Run("deletes unreferenced account", func(t *testing.T) {
		account := newTestAccount(t, store, "Empty")
		require.NoError(t, accounts.DeleteAccount(ctx, testUser, account.ID))

		_, err := store.GetAccount(ctx, account.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("refuses while ledger records reference it", func(t *testing.T) {
		account := newTestAccount(t, store, "Busy")
		_, err := engine.AddFlow(ctx, AddFlowParams{
			UserID:    testUser,
			Date:      "2026-04-01",
			Kind:      models.FlowExpense,
			Amount:    dec("5"),
			AccountID: account.ID,
		})
		require.NoError(t, err)

		err = accounts.DeleteAccount(ctx, testUser, account.ID)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)

		_, err = store.GetAccount(ctx, account.ID)
		assert.NoError(t, err, "guarded account must survive")
	})

	t.Run("scoped to the owner", func(t *testing.T) {
		account := newTestAccount(t, store, "Foreign")
		err := accounts.DeleteAccount(ctx, "someone-else", account.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestValidateUserAccounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)
	checker := NewConsistencyService(store)

	good := newTestAccount(t, store, "Good")
	bad := newTestAccount(t, store, "Bad")

	_, err := engine.AddFlow(ctx, AddFlowParams{
		UserID:    testUser,
		Date:      "2026-04-01",
		Kind:      models.FlowIncome,
		Amount:    dec("10"),
		AccountID: good.ID,
	})
	require.NoError(t, err)

	// Corrupt one cached balance directly.
	require.NoError(t, store.SetAccountBalance(ctx, bad.ID, dec("123")))

	report, err := checker.ValidateUserAccounts(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Drifted, 1)
	drift := report.Drifted[0]
	assert.Equal(t, bad.ID, drift.AccountID)
	assert.True(t, drift.Stored.Equal(dec("123")))
	assert.True(t, drift.Computed.IsZero())

	// Read-only: the drifted balance is still there afterwards.
	assert.True(t, accountBalance(t, store, bad.ID).Equal(dec("123")))
}
