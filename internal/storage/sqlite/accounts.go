package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/bookkeep/internal/models"
)

const accountColumns = "id, user_id, name, type, currency, balance, net_worth, hidden, created_at"

// CreateAccount persists a new account to the database.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	// Generate IDs if not set
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.UserID, account.Name, string(account.Type), account.Currency,
		account.Balance.String(), boolToInt(account.CountsInNetWorth), boolToInt(account.Hidden),
		account.CreatedAt,
	)
	if err != nil {
		return storeErr("failed to insert account", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", accountID)
	return scanAccount(row, accountID)
}

// GetUserAccount retrieves an account by ID, scoped to its owner. An account
// owned by someone else is indistinguishable from a missing one.
func (s *SQLiteStore) GetUserAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? AND user_id = ?", accountID, userID)
	return scanAccount(row, accountID)
}

// ListAccountsByUser returns every account owned by the user.
func (s *SQLiteStore) ListAccountsByUser(ctx context.Context, userID string) ([]*models.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, storeErr("failed to list accounts", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate accounts", err)
	}
	return accounts, nil
}

// SetAccountBalance overwrites the cached balance.
func (s *SQLiteStore) SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE accounts SET balance = ? WHERE id = ?", balance.String(), accountID)
	if err != nil {
		return storeErr("failed to set balance", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundErr("account", accountID)
	}
	return nil
}

// AddToAccountBalance applies a signed delta to the cached balance. The
// read-modify-write only serializes correctly inside RunTransaction, which
// is where every engine mutation already lives.
func (s *SQLiteStore) AddToAccountBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	var raw string
	err := s.q.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE id = ?", accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr("account", accountID)
	}
	if err != nil {
		return storeErr("failed to read balance", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return storeErr("failed to parse stored balance", err)
	}

	_, err = s.q.ExecContext(ctx,
		"UPDATE accounts SET balance = ? WHERE id = ?", balance.Add(delta).String(), accountID)
	if err != nil {
		return storeErr("failed to update balance", err)
	}
	return nil
}

// CountAccountRefs returns how many flows and transfers reference the account.
func (s *SQLiteStore) CountAccountRefs(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM flows WHERE account_id = ?)
		      + (SELECT COUNT(*) FROM transfers WHERE from_account_id = ? OR to_account_id = ?)`,
		accountID, accountID, accountID,
	).Scan(&count)
	if err != nil {
		return 0, storeErr("failed to count account references", err)
	}
	return count, nil
}

// DeleteAccount removes an account row.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, accountID string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", accountID)
	if err != nil {
		return storeErr("failed to delete account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundErr("account", accountID)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row, accountID string) (*models.Account, error) {
	account, err := scanAccountFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundErr("account", accountID)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func scanAccountRow(rows *sql.Rows) (*models.Account, error) {
	return scanAccountFrom(rows)
}

func scanAccountFrom(sc scanner) (*models.Account, error) {
	account := &models.Account{}
	var accountType, balance string
	var netWorth, hidden int

	err := sc.Scan(&account.ID, &account.UserID, &account.Name, &accountType, &account.Currency,
		&balance, &netWorth, &hidden, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("failed to scan account", err)
	}

	account.Type = models.AccountType(accountType)
	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, storeErr("failed to parse account balance", err)
	}
	account.CountsInNetWorth = netWorth != 0
	account.Hidden = hidden != 0
	return account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
