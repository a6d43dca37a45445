package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Monetary columns are TEXT holding decimal strings; all arithmetic happens
// in Go with shopspring/decimal, never in SQL, so no float rounding can
// creep into a balance.
//
// flows.transfer_id deliberately has NO foreign key to transfers: the loan
// migration tooling must be able to see and repair dangling links from
// historical data, which a FOREIGN KEY constraint would make unrepresentable.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    currency TEXT NOT NULL,
    balance TEXT NOT NULL DEFAULT '0',
    net_worth INTEGER NOT NULL DEFAULT 1,
    hidden INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS flows (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    book_id TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL,
    kind TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    payment_method TEXT NOT NULL DEFAULT '',
    counterparty TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL,
    account_id TEXT,
    transfer_id TEXT,
    eliminate INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transfers (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    from_account_id TEXT NOT NULL,
    to_account_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    loan_type TEXT NOT NULL DEFAULT '',
    counterparty TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_flows_user_id ON flows(user_id);
CREATE INDEX IF NOT EXISTS idx_flows_account_id ON flows(account_id);
CREATE INDEX IF NOT EXISTS idx_flows_transfer_id ON flows(transfer_id);
CREATE INDEX IF NOT EXISTS idx_transfers_user_id ON transfers(user_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
