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

const transferColumns = "id, user_id, date, from_account_id, to_account_id, amount, loan_type, counterparty, name, description, created_at"

// CreateTransfer persists a new transfer to the database.
func (s *SQLiteStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	// Generate IDs if not set
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transfers (`+transferColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.UserID, transfer.Date, transfer.FromAccountID, transfer.ToAccountID,
		transfer.Amount.String(), string(transfer.LoanType), transfer.Counterparty,
		transfer.Name, transfer.Description, transfer.CreatedAt,
	)
	if err != nil {
		return storeErr("failed to insert transfer", err)
	}
	return nil
}

// GetTransfer retrieves a transfer by ID.
func (s *SQLiteStore) GetTransfer(ctx context.Context, transferID string) (*models.Transfer, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE id = ?", transferID)
	return scanTransfer(row, transferID)
}

// GetUserTransfer retrieves a transfer by ID, scoped to its owner.
func (s *SQLiteStore) GetUserTransfer(ctx context.Context, userID, transferID string) (*models.Transfer, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE id = ? AND user_id = ?", transferID, userID)
	return scanTransfer(row, transferID)
}

// ListLoanTransfersByUser returns the user's loan-tagged transfers, earliest
// created first so the consolidation tie-break falls out of the ordering.
func (s *SQLiteStore) ListLoanTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers
		 WHERE user_id = ? AND loan_type != ''
		 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, storeErr("failed to list loan transfers", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransferFrom(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate loan transfers", err)
	}
	return transfers, nil
}

// ListOrphanTransfersByUser returns transfers no flow links to.
func (s *SQLiteStore) ListOrphanTransfersByUser(ctx context.Context, userID string) ([]*models.Transfer, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.date, t.from_account_id, t.to_account_id, t.amount,
		        t.loan_type, t.counterparty, t.name, t.description, t.created_at
		 FROM transfers t
		 LEFT JOIN flows f ON f.transfer_id = t.id
		 WHERE t.user_id = ? AND f.id IS NULL
		 ORDER BY t.created_at, t.id`, userID)
	if err != nil {
		return nil, storeErr("failed to list orphan transfers", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransferFrom(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate orphan transfers", err)
	}
	return transfers, nil
}

// DeleteTransfer removes a transfer row.
func (s *SQLiteStore) DeleteTransfer(ctx context.Context, transferID string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM transfers WHERE id = ?", transferID)
	if err != nil {
		return storeErr("failed to delete transfer", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundErr("transfer", transferID)
	}
	return nil
}

func scanTransfer(row *sql.Row, transferID string) (*models.Transfer, error) {
	transfer, err := scanTransferFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundErr("transfer", transferID)
	}
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

func scanTransferFrom(sc scanner) (*models.Transfer, error) {
	transfer := &models.Transfer{}
	var amount, loanType string

	err := sc.Scan(&transfer.ID, &transfer.UserID, &transfer.Date, &transfer.FromAccountID,
		&transfer.ToAccountID, &amount, &loanType, &transfer.Counterparty,
		&transfer.Name, &transfer.Description, &transfer.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("failed to scan transfer", err)
	}

	transfer.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, storeErr("failed to parse transfer amount", err)
	}
	transfer.LoanType = models.LoanType(loanType)
	return transfer, nil
}
