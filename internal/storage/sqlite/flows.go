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

const flowColumns = "id, user_id, book_id, date, kind, category, payment_method, counterparty, amount, account_id, transfer_id, eliminate, created_at"

// loanCategories is the IN-clause fragment matching the four loan types.
const loanCategories = "('borrow', 'lend', 'collect', 'repay')"

// CreateFlow persists a new ledger entry to the database.
func (s *SQLiteStore) CreateFlow(ctx context.Context, flow *models.Flow) error {
	// Generate IDs if not set
	if flow.ID == "" {
		flow.ID = uuid.New().String()
	}
	if flow.CreatedAt == 0 {
		flow.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO flows (`+flowColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flow.ID, flow.UserID, flow.BookID, flow.Date, string(flow.Kind), flow.Category,
		flow.PaymentMethod, flow.Counterparty, flow.Amount.String(),
		nullable(flow.AccountID), nullable(flow.TransferID), boolToInt(flow.Eliminate),
		flow.CreatedAt,
	)
	if err != nil {
		return storeErr("failed to insert flow", err)
	}
	return nil
}

// GetFlow retrieves a flow by ID.
func (s *SQLiteStore) GetFlow(ctx context.Context, flowID string) (*models.Flow, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE id = ?", flowID)
	return scanFlow(row, flowID)
}

// GetUserFlow retrieves a flow by ID, scoped to its owner.
func (s *SQLiteStore) GetUserFlow(ctx context.Context, userID, flowID string) (*models.Flow, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE id = ? AND user_id = ?", flowID, userID)
	return scanFlow(row, flowID)
}

// ListFlowsByAccount returns every flow referencing the account.
func (s *SQLiteStore) ListFlowsByAccount(ctx context.Context, accountID string) ([]*models.Flow, error) {
	return s.listFlows(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE account_id = ? ORDER BY date, created_at, id", accountID)
}

// ListFlowsByTransfer returns the flows linked to a transfer.
func (s *SQLiteStore) ListFlowsByTransfer(ctx context.Context, transferID string) ([]*models.Flow, error) {
	return s.listFlows(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE transfer_id = ? ORDER BY kind, id", transferID)
}

// ListUnlinkedLoanFlows returns loan-category flows with no transfer link,
// ordered deterministically for the pair matcher.
func (s *SQLiteStore) ListUnlinkedLoanFlows(ctx context.Context, userID string) ([]*models.Flow, error) {
	return s.listFlows(ctx,
		`SELECT `+flowColumns+` FROM flows
		 WHERE user_id = ? AND transfer_id IS NULL AND category IN `+loanCategories+`
		 ORDER BY date, created_at, id`, userID)
}

// ListLinkedLoanFlows returns loan-category flows that are transfer halves.
func (s *SQLiteStore) ListLinkedLoanFlows(ctx context.Context, userID string) ([]*models.Flow, error) {
	return s.listFlows(ctx,
		`SELECT `+flowColumns+` FROM flows
		 WHERE user_id = ? AND transfer_id IS NOT NULL AND category IN `+loanCategories+`
		 ORDER BY date, created_at, id`, userID)
}

// ListDanglingTransferFlows returns flows whose transfer link points at a
// transfer row that no longer exists.
func (s *SQLiteStore) ListDanglingTransferFlows(ctx context.Context, userID string) ([]*models.Flow, error) {
	return s.listFlows(ctx,
		`SELECT `+flowPrefixedColumns("f")+` FROM flows f
		 LEFT JOIN transfers t ON f.transfer_id = t.id
		 WHERE f.user_id = ? AND f.transfer_id IS NOT NULL AND t.id IS NULL
		 ORDER BY f.date, f.created_at, f.id`, userID)
}

// SumFlowsByAccount aggregates signed amounts over every flow referencing
// the account. The sum happens in Go with decimals; SQL only streams rows.
func (s *SQLiteStore) SumFlowsByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT kind, amount FROM flows WHERE account_id = ?", accountID)
	if err != nil {
		return decimal.Zero, storeErr("failed to sum flows", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var kind, amount string
		if err := rows.Scan(&kind, &amount); err != nil {
			return decimal.Zero, storeErr("failed to scan flow amount", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, storeErr("failed to parse flow amount", err)
		}
		if models.FlowKind(kind) == models.FlowIncome {
			sum = sum.Add(value)
		} else {
			sum = sum.Sub(value)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, storeErr("failed to iterate flow amounts", err)
	}
	return sum, nil
}

// UpdateFlow overwrites an existing flow.
func (s *SQLiteStore) UpdateFlow(ctx context.Context, flow *models.Flow) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE flows SET user_id = ?, book_id = ?, date = ?, kind = ?, category = ?,
		        payment_method = ?, counterparty = ?, amount = ?, account_id = ?,
		        transfer_id = ?, eliminate = ?
		 WHERE id = ?`,
		flow.UserID, flow.BookID, flow.Date, string(flow.Kind), flow.Category,
		flow.PaymentMethod, flow.Counterparty, flow.Amount.String(),
		nullable(flow.AccountID), nullable(flow.TransferID), boolToInt(flow.Eliminate),
		flow.ID,
	)
	if err != nil {
		return storeErr("failed to update flow", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundErr("flow", flow.ID)
	}
	return nil
}

// DeleteFlow removes a single flow row.
func (s *SQLiteStore) DeleteFlow(ctx context.Context, flowID string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM flows WHERE id = ?", flowID)
	if err != nil {
		return storeErr("failed to delete flow", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundErr("flow", flowID)
	}
	return nil
}

// DeleteFlowsByTransfer removes every flow linked to the transfer.
func (s *SQLiteStore) DeleteFlowsByTransfer(ctx context.Context, transferID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM flows WHERE transfer_id = ?", transferID)
	if err != nil {
		return 0, storeErr("failed to delete transfer flows", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("failed to count deleted transfer flows", err)
	}
	return n, nil
}

func (s *SQLiteStore) listFlows(ctx context.Context, query string, args ...any) ([]*models.Flow, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to list flows", err)
	}
	defer rows.Close()

	var flows []*models.Flow
	for rows.Next() {
		flow, err := scanFlowFrom(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate flows", err)
	}
	return flows, nil
}

func scanFlow(row *sql.Row, flowID string) (*models.Flow, error) {
	flow, err := scanFlowFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundErr("flow", flowID)
	}
	if err != nil {
		return nil, err
	}
	return flow, nil
}

func scanFlowFrom(sc scanner) (*models.Flow, error) {
	flow := &models.Flow{}
	var kind, amount string
	var accountID, transferID sql.NullString
	var eliminate int

	err := sc.Scan(&flow.ID, &flow.UserID, &flow.BookID, &flow.Date, &kind, &flow.Category,
		&flow.PaymentMethod, &flow.Counterparty, &amount, &accountID, &transferID,
		&eliminate, &flow.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("failed to scan flow", err)
	}

	flow.Kind = models.FlowKind(kind)
	flow.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, storeErr("failed to parse flow amount", err)
	}
	if accountID.Valid {
		flow.AccountID = accountID.String
	}
	if transferID.Valid {
		flow.TransferID = transferID.String
	}
	flow.Eliminate = eliminate != 0
	return flow, nil
}

// flowPrefixedColumns qualifies the flow column list with a table alias for
// joined queries.
func flowPrefixedColumns(alias string) string {
	return alias + ".id, " + alias + ".user_id, " + alias + ".book_id, " + alias + ".date, " +
		alias + ".kind, " + alias + ".category, " + alias + ".payment_method, " +
		alias + ".counterparty, " + alias + ".amount, " + alias + ".account_id, " +
		alias + ".transfer_id, " + alias + ".eliminate, " + alias + ".created_at"
}
