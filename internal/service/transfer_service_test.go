package service

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

const testUser = "u1"

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestAccount(t *testing.T, store storage.Store, name string) *models.Account {
	t.Helper()
	account := &models.Account{
		UserID:   testUser,
		Name:     name,
		Type:     models.AccountTypeCash,
		Currency: "USD",
		Balance:  decimal.Zero,
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func accountBalance(t *testing.T, store storage.Store, accountID string) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateTransfer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	transfer, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		BookID:        "default",
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("100"),
		LoanType:      models.LoanLend,
		Counterparty:  "alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, transfer.ID)

	// Lending 100 from A to B: A down 100, B up 100.
	assert.True(t, accountBalance(t, store, from.ID).Equal(dec("-100")))
	assert.True(t, accountBalance(t, store, to.ID).Equal(dec("100")))

	flows, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	for _, flow := range flows {
		assert.True(t, flow.Eliminate, "transfer halves are excluded from statistics")
		assert.Equal(t, "lend", flow.Category)
		assert.Equal(t, transfer.ID, flow.TransferID)
		assert.True(t, flow.Amount.Equal(dec("100")))
	}

	var kinds []models.FlowKind
	for _, flow := range flows {
		kinds = append(kinds, flow.Kind)
	}
	assert.ElementsMatch(t, []models.FlowKind{models.FlowExpense, models.FlowIncome}, kinds)
}

func TestCreateTransferValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	base := CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("10"),
	}

	t.Run("same account", func(t *testing.T) {
		p := base
		p.ToAccountID = p.FromAccountID
		_, err := engine.CreateTransfer(ctx, p)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		p := base
		p.Amount = dec("0")
		_, err := engine.CreateTransfer(ctx, p)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("bad date", func(t *testing.T) {
		p := base
		p.Date = "April 1st"
		_, err := engine.CreateTransfer(ctx, p)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("loan without counterparty", func(t *testing.T) {
		p := base
		p.LoanType = models.LoanBorrow
		_, err := engine.CreateTransfer(ctx, p)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("unknown loan type", func(t *testing.T) {
		p := base
		p.LoanType = "gift"
		p.Counterparty = "alice"
		_, err := engine.CreateTransfer(ctx, p)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("missing account", func(t *testing.T) {
		p := base
		p.ToAccountID = "no-such-account"
		_, err := engine.CreateTransfer(ctx, p)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("failed create leaves no partial state", func(t *testing.T) {
		p := base
		p.ToAccountID = "no-such-account"
		_, err := engine.CreateTransfer(ctx, p)
		require.Error(t, err)
		assert.True(t, accountBalance(t, store, from.ID).IsZero(),
			"source balance must be untouched after a failed create")
	})
}

func TestDeleteTransfer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	transfer, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("60"),
	})
	require.NoError(t, err)

	require.NoError(t, engine.DeleteTransfer(ctx, testUser, transfer.ID))

	// Both balances return to zero and nothing of the pair remains.
	assert.True(t, accountBalance(t, store, from.ID).IsZero())
	assert.True(t, accountBalance(t, store, to.ID).IsZero())

	_, err = store.GetTransfer(ctx, transfer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	flows, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestDeleteTransferAnomalous(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	transfer, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("40"),
	})
	require.NoError(t, err)

	// Break the pair: remove one half behind the engine's back.
	flows, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	require.NoError(t, store.DeleteFlow(ctx, flows[0].ID))

	err = engine.DeleteTransfer(ctx, testUser, transfer.ID)
	require.ErrorIs(t, err, models.ErrAmbiguousState)

	// The cleanup committed despite the error: junk gone, balances rebuilt
	// from the remaining ledger (which is empty).
	_, err = store.GetTransfer(ctx, transfer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	remaining, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.True(t, accountBalance(t, store, from.ID).IsZero())
	assert.True(t, accountBalance(t, store, to.ID).IsZero())
}

func TestUpdateTransfer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")
	other := newTestAccount(t, store, "C")

	transfer, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		BookID:        "default",
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("25"),
	})
	require.NoError(t, err)

	newAmount := dec("80")
	updated, err := engine.UpdateTransfer(ctx, testUser, transfer.ID, UpdateTransferParams{
		Amount:      &newAmount,
		ToAccountID: &other.ID,
	})
	require.NoError(t, err)

	// Identity survives the delete-then-recreate.
	assert.Equal(t, transfer.ID, updated.ID)
	assert.Equal(t, transfer.CreatedAt, updated.CreatedAt)

	// Old deltas reversed, new ones applied.
	assert.True(t, accountBalance(t, store, from.ID).Equal(dec("-80")))
	assert.True(t, accountBalance(t, store, to.ID).IsZero())
	assert.True(t, accountBalance(t, store, other.ID).Equal(dec("80")))

	flows, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	for _, flow := range flows {
		assert.Equal(t, "default", flow.BookID, "book tag carries across the rebuild")
	}
}

func TestUpdateTransferInvalidLeavesOriginal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	transfer, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("25"),
	})
	require.NoError(t, err)

	bad := dec("-5")
	_, err = engine.UpdateTransfer(ctx, testUser, transfer.ID, UpdateTransferParams{Amount: &bad})
	require.ErrorIs(t, err, models.ErrInvalidArgument)

	// The whole update rolled back: pair and balances unchanged.
	assert.True(t, accountBalance(t, store, from.ID).Equal(dec("-25")))
	assert.True(t, accountBalance(t, store, to.ID).Equal(dec("25")))
	flows, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Len(t, flows, 2)
}

func TestAddAndDeleteFlow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	account := newTestAccount(t, store, "Wallet")

	flow, err := engine.AddFlow(ctx, AddFlowParams{
		UserID:    testUser,
		Date:      "2026-04-02",
		Kind:      models.FlowIncome,
		Category:  "salary",
		Amount:    dec("1500"),
		AccountID: account.ID,
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, account.ID).Equal(dec("1500")))

	require.NoError(t, engine.DeleteFlow(ctx, testUser, flow.ID))
	assert.True(t, accountBalance(t, store, account.ID).IsZero())
}

func TestDeleteFlowRedirectsToTransfer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	from := newTestAccount(t, store, "A")
	to := newTestAccount(t, store, "B")

	transfer, err := engine.CreateTransfer(ctx, CreateTransferParams{
		UserID:        testUser,
		Date:          "2026-04-01",
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        dec("30"),
	})
	require.NoError(t, err)

	flows, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	require.Len(t, flows, 2)

	// Deleting one half removes the whole pair.
	require.NoError(t, engine.DeleteFlow(ctx, testUser, flows[0].ID))

	_, err = store.GetTransfer(ctx, transfer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	remaining, err := store.ListFlowsByTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.True(t, accountBalance(t, store, from.ID).IsZero())
	assert.True(t, accountBalance(t, store, to.ID).IsZero())
}

func TestDeleteFlowDanglingHalf(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := NewTransferService(store)

	account := newTestAccount(t, store, "Wallet")

	// A half pointing at a transfer that never existed: legacy junk.
	dangling := &models.Flow{
		UserID:     testUser,
		Date:       "2026-04-01",
		Kind:       models.FlowExpense,
		Category:   "transfer",
		Amount:     dec("15"),
		AccountID:  account.ID,
		TransferID: "gone",
		Eliminate:  true,
	}
	require.NoError(t, store.CreateFlow(ctx, dangling))
	require.NoError(t, store.SetAccountBalance(ctx, account.ID, dec("-15")))

	require.NoError(t, engine.DeleteFlow(ctx, testUser, dangling.ID))

	_, err := store.GetFlow(ctx, dangling.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.True(t, accountBalance(t, store, account.ID).IsZero(),
		"account rebuilt from the remaining ledger")
}
